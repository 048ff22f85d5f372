package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
)

type fakeBreakpoint struct {
	url  string
	line int
}

// fakeTarget behaves like a WebView for breakpoint traffic. Like V8, breakpoints set by url outlive
// the scripts they were resolved in.
type fakeTarget struct {
	t          *testing.T
	nextScript int
	nextBP     int
	live       map[string]string
	bps        map[string]fakeBreakpoint
	out        [][]byte
}

func newFakeTarget(t *testing.T) *fakeTarget {
	return &fakeTarget{
		t:    t,
		live: make(map[string]string),
		bps:  make(map[string]fakeBreakpoint),
	}
}

func (f *fakeTarget) emit(b []byte, err error) {
	require.NoError(f.t, err)
	f.out = append(f.out, b)
}

func (f *fakeTarget) loadScript(url string) string {
	f.nextScript++
	id := fmt.Sprint(f.nextScript)
	f.live[id] = url
	f.emit([]byte(fmt.Sprintf(`{"method":"Debugger.scriptParsed","params":{"scriptId":%q,"url":%q,"startLine":0,"startColumn":0,"endLine":500,"endColumn":0}}`, id, url)), nil)
	for bpID, bp := range f.bps {
		if bp.url == url {
			f.emit(mapper.NewEventBytes(entity.MethodDebuggerBreakpointResolved, map[string]any{
				"breakpointId": bpID,
				"location":     map[string]any{"scriptId": id, "lineNumber": bp.line},
			}))
		}
	}
	return id
}

func (f *fakeTarget) reload() {
	f.live = make(map[string]string)
	f.emit(mapper.NewEventBytes(entity.MethodRuntimeExecutionContextsCleared, map[string]any{}))
}

func (f *fakeTarget) handle(raw []byte) {
	msg := gjson.ParseBytes(raw)
	id := msg.Get("id").Int()
	params := msg.Get("params")

	switch msg.Get("method").String() {
	case entity.MethodDebuggerSetBreakpointByURL:
		require.False(f.t, params.Get("urlRegex").Exists(), "urlRegex must not reach the target")
		url := params.Get("url").String()
		line := int(params.Get("lineNumber").Int())
		for _, bp := range f.bps {
			if bp.url == url && bp.line == line {
				f.emit(mapper.NewErrorResponseBytes(id, entity.CDPErrorServer, _breakpointExists))
				return
			}
		}
		f.nextBP++
		bpID := fmt.Sprintf("%d:%d:0:%s", f.nextBP, line, url)
		f.bps[bpID] = fakeBreakpoint{url: url, line: line}
		locations := []any{}
		for scriptID, scriptURL := range f.live {
			if scriptURL == url {
				locations = append(locations, map[string]any{"scriptId": scriptID, "lineNumber": line, "columnNumber": 0})
			}
		}
		f.emit(mapper.NewResponseBytes(id, map[string]any{"breakpointId": bpID, "locations": locations}))
	case entity.MethodDebuggerRemoveBreakpoint:
		delete(f.bps, params.Get("breakpointId").String())
		f.emit(mapper.NewResponseBytes(id, map[string]any{}))
	default:
		f.emit(mapper.NewResponseBytes(id, map[string]any{}))
	}
}

// harness wires an Engine to a fakeTarget through FIFO queues, one per direction.
type harness struct {
	t        *testing.T
	engine   *Engine
	target   *fakeTarget
	toTarget [][]byte
	toClient [][]byte
}

func newHarness(t *testing.T, p Params) *harness {
	if p.Transform == nil {
		p.Transform = androidTransform(t)
	}
	return &harness{t: t, engine: NewEngine(p), target: newFakeTarget(t)}
}

func (h *harness) dispatch(out []Outbound) {
	for _, o := range out {
		if o.Destination == ToTarget {
			h.toTarget = append(h.toTarget, o.Payload)
		} else {
			h.toClient = append(h.toClient, o.Payload)
		}
	}
}

func (h *harness) clientSend(raw []byte) {
	h.dispatch(h.engine.HandleClientMessage(raw))
}

// targetStep lets the target answer the oldest request it has not seen.
func (h *harness) targetStep() bool {
	if len(h.toTarget) == 0 {
		return false
	}
	msg := h.toTarget[0]
	h.toTarget = h.toTarget[1:]
	h.target.handle(msg)
	return true
}

// deliverStep hands the oldest target message to the engine.
func (h *harness) deliverStep() bool {
	if len(h.target.out) == 0 {
		return false
	}
	msg := h.target.out[0]
	h.target.out = h.target.out[1:]
	h.dispatch(h.engine.HandleTargetMessage(msg))
	return true
}

func (h *harness) drain() {
	for h.targetStep() || h.deliverStep() {
	}
}

// clientResponse returns the response the client received for id.
func (h *harness) clientResponse(id int64) (gjson.Result, bool) {
	for _, raw := range h.toClient {
		msg := gjson.ParseBytes(raw)
		if msg.Get("id").Exists() && msg.Get("id").Int() == id && !msg.Get("method").Exists() {
			return msg, true
		}
	}
	return gjson.Result{}, false
}

func (h *harness) clientEvents(method string) []gjson.Result {
	var res []gjson.Result
	for _, raw := range h.toClient {
		msg := gjson.ParseBytes(raw)
		if msg.Get("method").String() == method && !msg.Get("id").Exists() {
			res = append(res, msg)
		}
	}
	return res
}
