package cdpproxy

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/cdp-proxy/engine"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// wsConn is the part of *websocket.Conn the actor uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type side int

const (
	sideClient side = iota
	sideTarget
)

func (s side) String() string {
	if s == sideClient {
		return "client"
	}
	return "target"
}

type frame struct {
	from    side
	payload []byte
	err     error
}

// DisconnectedError reports which socket ended a proxied session.
type DisconnectedError struct {
	Side  string
	Cause error
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("%s disconnected: %v", e.Side, e.Cause)
}

func (e *DisconnectedError) Unwrap() error {
	return e.Cause
}

// sessionActor owns both sockets of one proxied session. Only run touches the engine and writes to the sockets.
type sessionActor struct {
	id     uuid.UUID
	client wsConn
	target wsConn
	engine *engine.Engine
	logger *zap.SugaredLogger
	trace  io.WriteCloser

	events  chan frame
	readers sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newSessionActor(id uuid.UUID, client, target wsConn, eng *engine.Engine, logger *zap.SugaredLogger, trace io.WriteCloser) *sessionActor {
	return &sessionActor{
		id:     id,
		client: client,
		target: target,
		engine: eng,
		logger: logger,
		trace:  trace,
		events: make(chan frame),
		done:   make(chan struct{}),
	}
}

// start runs the actor in its own goroutine. onExit is called once the sockets are closed and the readers are gone,
// before stop returns.
func (a *sessionActor) start(ctx context.Context, onExit func(err error)) {
	ctx, a.cancel = context.WithCancel(ctx)
	go func() {
		defer close(a.done)
		a.err = a.run(ctx)
		if onExit != nil {
			onExit(a.err)
		}
	}()
}

// stop cancels the actor and waits for it to exit or for ctx to end.
func (a *sessionActor) stop(ctx context.Context) error {
	a.cancel()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping session %q: %w", a.id, ctx.Err())
	}
}

func (a *sessionActor) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	a.readers.Add(2)
	go a.read(ctx, sideClient, a.client)
	go a.read(ctx, sideTarget, a.target)

	err := a.loop(ctx)

	cancel()
	closeErr := multierr.Combine(a.client.Close(), a.target.Close())
	a.readers.Wait()
	if a.trace != nil {
		closeErr = multierr.Append(closeErr, a.trace.Close())
	}
	if closeErr != nil {
		a.logger.Debugw("closing session sockets", "sessionId", a.id.String(), zap.Error(closeErr))
	}
	return err
}

func (a *sessionActor) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-a.events:
			if f.err != nil {
				return &DisconnectedError{Side: f.from.String(), Cause: f.err}
			}
			a.traceFrame(f.from.String(), "in", f.payload)

			var out []engine.Outbound
			if f.from == sideClient {
				out = a.engine.HandleClientMessage(f.payload)
			} else {
				out = a.engine.HandleTargetMessage(f.payload)
			}

			for _, o := range out {
				if err := a.write(o); err != nil {
					return &DisconnectedError{Side: o.Destination.String(), Cause: err}
				}
			}
		}
	}
}

func (a *sessionActor) write(o engine.Outbound) error {
	a.traceFrame(o.Destination.String(), "out", o.Payload)
	if o.Destination == engine.ToClient {
		return a.client.WriteMessage(websocket.TextMessage, o.Payload)
	}
	return a.target.WriteMessage(websocket.TextMessage, o.Payload)
}

// read feeds one socket into the event channel until the socket fails or the actor stops.
func (a *sessionActor) read(ctx context.Context, from side, conn wsConn) {
	defer a.readers.Done()
	for {
		messageType, payload, err := conn.ReadMessage()
		if err == nil && messageType != websocket.TextMessage {
			continue
		}

		select {
		case a.events <- frame{from: from, payload: payload, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (a *sessionActor) traceFrame(peer string, direction string, payload []byte) {
	if a.trace == nil {
		return
	}
	fmt.Fprintf(a.trace, "%s %s %s\n", direction, peer, payload)
}
