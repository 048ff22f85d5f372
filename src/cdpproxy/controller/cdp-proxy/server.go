package cdpproxy

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"go.uber.org/zap"
)

const (
	_browserName     = "cordova-cdp-proxy"
	_protocolVersion = "1.3"
	_closeTimeout    = time.Second
	_maxCloseReason  = 123
)

func (c *controller) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /json/version", c.handleVersion)
	mux.HandleFunc("GET /json/list", c.handleList)
	mux.HandleFunc("GET /json", c.handleList)
	mux.HandleFunc("GET "+_sessionPathPrefix+"{id}", c.handleSession)
	return mux
}

func (c *controller) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, entity.BrowserVersion{
		Browser:         _browserName,
		ProtocolVersion: _protocolVersion,
	})
}

// handleList advertises every registered session the way a DevTools endpoint advertises its pages.
func (c *controller) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := c.sessions.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	targets := make([]entity.DebuggingTarget, 0, len(sessions))
	for _, s := range sessions {
		targets = append(targets, entity.DebuggingTarget{
			Description:          s.Status.String(),
			ID:                   s.UUID.String(),
			Title:                string(s.Platform) + ": " + s.ProjectRoot,
			Type:                 "page",
			URL:                  s.WebSocketDebuggerURL,
			WebSocketDebuggerURL: c.ProxyURL(s.UUID),
		})
	}
	writeJSON(w, targets)
}

func (c *controller) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	s, err := c.sessions.Get(r.Context(), id)
	if err != nil {
		if _, ok := errors.NotFoundUUID(err); ok {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := c.reserve(id); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		c.release(id)
		c.logger.Warnw("upgrading debugger connection", "sessionId", id.String(), zap.Error(err))
		return
	}

	if err := c.attach(r.Context(), s, conn); err != nil {
		c.release(id)
		c.logger.Errorw("attaching debugger", "sessionId", id.String(), zap.Error(err))
		closeWithReason(conn, err.Error())
	}
}

func closeWithReason(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, truncateCloseReason(reason))
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(_closeTimeout))
	_ = conn.Close()
}

// truncateCloseReason cuts reason to fit a close frame without splitting a rune.
// Close frame payloads are limited to 125 bytes, two of which hold the code.
func truncateCloseReason(reason string) string {
	if len(reason) <= _maxCloseReason {
		return reason
	}
	n := _maxCloseReason
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	_ = json.NewEncoder(w).Encode(v)
}
