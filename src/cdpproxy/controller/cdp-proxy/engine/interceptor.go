// Package engine rewrites Chrome DevTools Protocol traffic between a debugger client and a Cordova WebView.
//
// The client sees scripts under their local file:// URLs and breakpoints under proxy ids. The target sees
// its own script URLs and breakpoint ids. Breakpoints survive page reloads: when a script is superseded by a
// new instance the engine binds the client's breakpoints again against the new instance.
package engine

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/uber-go/tally"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.uber.org/zap"
)

const _breakpointIDPrefix = "cdpproxy:"

// Destination is the side of the proxy a message is written to.
type Destination int

const (
	// ToClient is the debugger client.
	ToClient Destination = iota
	// ToTarget is the WebView.
	ToTarget
)

// String implements fmt.Stringer.
func (d Destination) String() string {
	if d == ToClient {
		return "client"
	}
	return "target"
}

// Outbound is a message the engine wants written.
type Outbound struct {
	Destination Destination
	Payload     []byte
}

type callKind int

const (
	callForward callKind = iota
	callClientSetBreakpoint
	callClientRemoveBreakpoint
	callRebind
	callRebindRemove
)

type pendingCall struct {
	kind     callKind
	clientID int64
	specID   string
	scriptID string
}

// Params are the dependencies of an Engine.
type Params struct {
	Transform PathTransform
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	// Alive reports whether the session is still registered. Answers to the engine's own requests are
	// discarded once it returns false.
	Alive func() bool
	// HistoryLimit bounds the number of superseded scripts kept for late answers.
	HistoryLimit int
}

// Engine is the per-session CDP message interceptor. It is not safe for concurrent use.
type Engine struct {
	logger *zap.SugaredLogger
	alive  func() bool

	messages tally.Counter
	dropped  tally.Counter
	rebinds  tally.Counter

	scripts  *ScriptMapper
	rebinder *Rebinder

	nextID         int64
	nextBreakpoint int
	pending        map[int64]pendingCall
}

// NewEngine returns an Engine for one session.
func NewEngine(p Params) *Engine {
	alive := p.Alive
	if alive == nil {
		alive = func() bool { return true }
	}
	stats := p.Stats
	if stats == nil {
		stats = tally.NoopScope
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	e := &Engine{
		logger:   logger,
		alive:    alive,
		messages: stats.Counter("cdp.messages"),
		dropped:  stats.Counter("cdp.dropped"),
		rebinds:  stats.Counter("cdp.rebinds"),
		scripts:  NewScriptMapper(p.Transform, p.HistoryLimit),
		pending:  make(map[int64]pendingCall),
	}
	e.rebinder = NewRebinder(e.scripts)
	return e
}

// HandleClientMessage processes one message from the debugger client.
func (e *Engine) HandleClientMessage(raw []byte) []Outbound {
	e.messages.Inc(1)
	env, err := mapper.BytesToEnvelope(raw)
	if err != nil {
		e.drop(ToClient, err)
		return nil
	}
	if !env.IsRequest() {
		return []Outbound{{Destination: ToTarget, Payload: raw}}
	}

	switch env.Method {
	case entity.MethodDebuggerSetBreakpointByURL:
		return e.clientSetBreakpoint(env)
	case entity.MethodDebuggerRemoveBreakpoint:
		return e.clientRemoveBreakpoint(env)
	default:
		return e.forward(env, pendingCall{kind: callForward, clientID: env.ID})
	}
}

// HandleTargetMessage processes one message from the target.
func (e *Engine) HandleTargetMessage(raw []byte) []Outbound {
	e.messages.Inc(1)
	env, err := mapper.BytesToEnvelope(raw)
	if err != nil {
		e.drop(ToTarget, err)
		return nil
	}
	if env.IsResponse() {
		return e.targetResponse(env)
	}
	if !env.IsEvent() {
		return []Outbound{{Destination: ToClient, Payload: raw}}
	}

	switch env.Method {
	case entity.MethodDebuggerScriptParsed:
		return e.scriptParsed(env)
	case entity.MethodRuntimeExecutionContextsCleared:
		e.rebinder.OnSuperseded(e.scripts.SupersedeAll())
		return []Outbound{{Destination: ToClient, Payload: raw}}
	case entity.MethodDebuggerBreakpointResolved:
		return e.breakpointResolved(env)
	case entity.MethodDebuggerPaused:
		return e.paused(env)
	default:
		return []Outbound{{Destination: ToClient, Payload: raw}}
	}
}

func (e *Engine) forward(env *mapper.CDPEnvelope, call pendingCall) []Outbound {
	id := e.newID()
	payload, err := mapper.WithID(env.Raw, id)
	if err != nil {
		return e.fail(env.ID, err)
	}
	e.pending[id] = call
	return []Outbound{{Destination: ToTarget, Payload: payload}}
}

func (e *Engine) clientSetBreakpoint(env *mapper.CDPEnvelope) []Outbound {
	params := env.Params
	line := params.Get("lineNumber")
	if line.Type != gjson.Number {
		return e.reject(env, "lineNumber is required")
	}
	urlField := params.Get("url")
	regexField := params.Get("urlRegex")
	if !urlField.Exists() && !regexField.Exists() {
		if params.Get("scriptHash").Exists() {
			return e.forward(env, pendingCall{kind: callForward, clientID: env.ID})
		}
		return e.reject(env, "one of url or urlRegex is required")
	}

	spec := &entity.BreakpointSpec{
		Line:      int(line.Int()),
		Condition: params.Get("condition").String(),
	}
	if column := params.Get("columnNumber"); column.Type == gjson.Number {
		spec.Column = int(column.Int())
		spec.HasColumn = true
	}

	var re *regexp.Regexp
	if urlField.Exists() {
		local, ok := LocalPathFromURL(urlField.String())
		if !ok || !e.mappable(local) {
			return e.forward(env, pendingCall{kind: callForward, clientID: env.ID})
		}
		spec.LocalPath = local
	} else {
		var err error
		if re, err = regexp.Compile(regexField.String()); err != nil {
			e.logger.Debugw("forwarding breakpoint with a regex the proxy cannot compile", "urlRegex", regexField.String(), zap.Error(err))
			return e.forward(env, pendingCall{kind: callForward, clientID: env.ID})
		}
		spec.URLRegex = regexField.String()
	}

	spec.ID = e.newBreakpointID()
	e.rebinder.Add(spec, re)

	recs := e.rebinder.Candidates(spec)
	if len(recs) == 0 {
		location := spec.LocalPath
		if location == "" {
			location = spec.URLRegex
		}
		e.logger.Debugw("holding breakpoint", "breakpoint", spec.ID, zap.Error(&errors.UnresolvedScriptError{Location: location}))
		return e.replyToClient(env.ID, breakpointResult(spec.ID, nil))
	}

	// The client's own request goes to the first script; every further match is bound like a rebind.
	id := e.newID()
	payload, err := rewriteSetBreakpoint(env.Raw, id, recs[0].RemoteURL)
	if err != nil {
		e.rebinder.Remove(spec.ID)
		return e.fail(env.ID, err)
	}
	action := e.rebinder.Bind(spec, recs[0])
	e.pending[id] = pendingCall{kind: callClientSetBreakpoint, clientID: env.ID, specID: spec.ID, scriptID: action.ScriptID}
	out := []Outbound{{Destination: ToTarget, Payload: payload}}
	for _, rec := range recs[1:] {
		out = append(out, e.bindRequests(e.rebinder.Bind(spec, rec))...)
	}
	return out
}

func (e *Engine) clientRemoveBreakpoint(env *mapper.CDPEnvelope) []Outbound {
	bp := env.Params.Get("breakpointId")
	if bp.Type != gjson.String {
		return e.reject(env, "breakpointId is required")
	}
	if _, ok := e.rebinder.Get(bp.String()); !ok {
		return e.forward(env, pendingCall{kind: callForward, clientID: env.ID})
	}

	targetIDs, _ := e.rebinder.Remove(bp.String())
	if len(targetIDs) == 0 {
		return e.replyToClient(env.ID, map[string]any{})
	}

	// The client is answered with the target's answer for the first target breakpoint.
	id := e.newID()
	payload, err := mapper.WithID(env.Raw, id)
	if err == nil {
		payload, err = sjson.SetBytes(payload, "params.breakpointId", targetIDs[0])
	}
	if err != nil {
		e.drop(ToClient, err)
		return append(e.replyToClient(env.ID, map[string]any{}), e.removeTargets(bp.String(), targetIDs)...)
	}
	e.pending[id] = pendingCall{kind: callClientRemoveBreakpoint, clientID: env.ID}
	out := []Outbound{{Destination: ToTarget, Payload: payload}}
	return append(out, e.removeTargets(bp.String(), targetIDs[1:])...)
}

func (e *Engine) scriptParsed(env *mapper.CDPEnvelope) []Outbound {
	params := env.Params
	scriptID := params.Get("scriptId")
	if scriptID.Type != gjson.String || scriptID.String() == "" {
		e.drop(ToTarget, &errors.MalformedMessageError{Method: env.Method, Reason: "scriptId is required"})
		return nil
	}
	remoteURL := params.Get("url").String()
	if remoteURL == "" {
		return []Outbound{{Destination: ToClient, Payload: env.Raw}}
	}

	rec, superseded, isNew := e.scripts.Register(ScriptParsed{
		ScriptID:    scriptID.String(),
		URL:         remoteURL,
		StartLine:   int(params.Get("startLine").Int()),
		StartColumn: int(params.Get("startColumn").Int()),
		EndLine:     int(params.Get("endLine").Int()),
	})
	e.rebinder.OnSuperseded(superseded)

	payload := env.Raw
	if rec.LocalURL != remoteURL {
		rewritten, err := sjson.SetBytes(env.Raw, "params.url", rec.LocalURL)
		if err != nil {
			e.drop(ToTarget, err)
			return nil
		}
		payload = rewritten
	}
	out := []Outbound{{Destination: ToClient, Payload: payload}}
	if !isNew {
		return out
	}

	for _, action := range e.rebinder.OnScriptRegistered(rec) {
		out = append(out, e.bindRequests(action)...)
	}
	return out
}

func (e *Engine) bindRequests(action BindAction) []Outbound {
	var out []Outbound
	if action.RemoveTargetID != "" {
		id := e.newID()
		payload, err := mapper.NewRequestBytes(id, entity.MethodDebuggerRemoveBreakpoint, map[string]any{
			"breakpointId": action.RemoveTargetID,
		})
		if err == nil {
			e.pending[id] = pendingCall{kind: callRebindRemove, specID: action.SpecID}
			out = append(out, Outbound{Destination: ToTarget, Payload: payload})
		}
	}

	params := map[string]any{
		"url":        action.RemoteURL,
		"lineNumber": action.Line,
	}
	if action.HasColumn {
		params["columnNumber"] = action.Column
	}
	if action.Condition != "" {
		params["condition"] = action.Condition
	}
	id := e.newID()
	payload, err := mapper.NewRequestBytes(id, entity.MethodDebuggerSetBreakpointByURL, params)
	if err != nil {
		e.rebinder.OnBindResult(action.SpecID, action.ScriptID, "", err.Error())
		e.drop(ToClient, err)
		return out
	}
	e.rebinds.Inc(1)
	e.pending[id] = pendingCall{kind: callRebind, specID: action.SpecID, scriptID: action.ScriptID}
	return append(out, Outbound{Destination: ToTarget, Payload: payload})
}

func (e *Engine) targetResponse(env *mapper.CDPEnvelope) []Outbound {
	call, ok := e.pending[env.ID]
	if !ok {
		e.drop(ToTarget, &errors.MalformedMessageError{Reason: fmt.Sprintf("response to unknown id %d", env.ID)})
		return nil
	}
	delete(e.pending, env.ID)

	switch call.kind {
	case callClientSetBreakpoint:
		return e.clientSetBreakpointResult(env, call)
	case callRebind:
		if !e.alive() {
			e.logger.Debugw("discarding rebind result for ended session", "breakpoint", call.specID)
			return nil
		}
		return e.rebindResult(env, call)
	case callRebindRemove:
		if env.Error.Exists() {
			e.logger.Debugw("target could not remove replaced breakpoint", "breakpoint", call.specID, "error", env.Error.Get("message").String())
		}
		return nil
	default:
		payload, err := mapper.WithID(env.Raw, call.clientID)
		if err != nil {
			e.drop(ToTarget, err)
			return nil
		}
		return []Outbound{{Destination: ToClient, Payload: payload}}
	}
}

func (e *Engine) clientSetBreakpointResult(env *mapper.CDPEnvelope, call pendingCall) []Outbound {
	targetID := env.Result.Get("breakpointId").String()
	errMsg := env.Error.Get("message").String()
	if env.Error.Exists() && errMsg == "" {
		errMsg = env.Error.Raw
	}

	outcome, followUp := e.rebinder.OnBindResult(call.specID, call.scriptID, targetID, errMsg)
	switch outcome {
	case BindBound:
		var locations []entity.BreakpointLocation
		if errMsg == "" {
			locations = parseLocations(env.Result.Get("locations"))
		}
		return e.replyToClient(call.clientID, breakpointResult(call.specID, locations))
	case BindStale:
		out := e.replyToClient(call.clientID, breakpointResult(call.specID, nil))
		return append(out, e.afterStale(call.specID, targetID, errMsg, followUp)...)
	default:
		// Bindings against other scripts the breakpoint matched go with it.
		targetIDs, _ := e.rebinder.Remove(call.specID)
		out := e.removeTargets(call.specID, targetIDs)
		payload, err := mapper.WithID(env.Raw, call.clientID)
		if err != nil {
			e.drop(ToTarget, err)
			return out
		}
		return append(out, Outbound{Destination: ToClient, Payload: payload})
	}
}

func (e *Engine) rebindResult(env *mapper.CDPEnvelope, call pendingCall) []Outbound {
	targetID := env.Result.Get("breakpointId").String()
	errMsg := env.Error.Get("message").String()
	if env.Error.Exists() && errMsg == "" {
		errMsg = env.Error.Raw
	}

	outcome, followUp := e.rebinder.OnBindResult(call.specID, call.scriptID, targetID, errMsg)
	switch outcome {
	case BindBound:
		var out []Outbound
		for _, loc := range parseLocations(env.Result.Get("locations")) {
			payload, err := mapper.NewEventBytes(entity.MethodDebuggerBreakpointResolved, map[string]any{
				"breakpointId": call.specID,
				"location":     loc,
			})
			if err != nil {
				e.drop(ToTarget, err)
				continue
			}
			out = append(out, Outbound{Destination: ToClient, Payload: payload})
		}
		return out
	case BindStale:
		return e.afterStale(call.specID, targetID, errMsg, followUp)
	default:
		url := ""
		if rec, ok := e.scripts.ByScriptID(call.scriptID); ok {
			url = rec.LocalURL
		}
		e.logger.Warnw("target rejected rebound breakpoint", "breakpoint", call.specID, "script", call.scriptID, "url", url, "error", errMsg)
		return nil
	}
}

// afterStale issues the follow-up bind for a stale answer, or removes the breakpoint the answer created
// when no live breakpoint refers to it.
func (e *Engine) afterStale(specID, targetID, errMsg string, followUp *BindAction) []Outbound {
	if followUp != nil {
		return e.bindRequests(*followUp)
	}
	if errMsg != "" || targetID == "" || e.rebinder.Holds(targetID) {
		return nil
	}
	return e.removeTargets(specID, []string{targetID})
}

// removeTargets removes target breakpoints on the proxy's own account.
func (e *Engine) removeTargets(specID string, targetIDs []string) []Outbound {
	var out []Outbound
	for _, targetID := range targetIDs {
		id := e.newID()
		payload, err := mapper.NewRequestBytes(id, entity.MethodDebuggerRemoveBreakpoint, map[string]any{"breakpointId": targetID})
		if err != nil {
			e.drop(ToTarget, err)
			continue
		}
		e.pending[id] = pendingCall{kind: callRebindRemove, specID: specID}
		out = append(out, Outbound{Destination: ToTarget, Payload: payload})
	}
	return out
}

func (e *Engine) breakpointResolved(env *mapper.CDPEnvelope) []Outbound {
	targetID := env.Params.Get("breakpointId").String()
	if e.rebinder.IsRetired(targetID) {
		e.logger.Debugw("dropping resolution of replaced breakpoint", "targetBreakpoint", targetID)
		return nil
	}
	proxyIDs := e.rebinder.ProxyIDsForTarget(targetID)
	if len(proxyIDs) == 0 {
		return []Outbound{{Destination: ToClient, Payload: env.Raw}}
	}
	// Each breakpoint sharing the target breakpoint is resolved on its own.
	out := make([]Outbound, 0, len(proxyIDs))
	for _, proxyID := range proxyIDs {
		payload, err := sjson.SetBytes(env.Raw, "params.breakpointId", proxyID)
		if err != nil {
			e.drop(ToTarget, err)
			return nil
		}
		out = append(out, Outbound{Destination: ToClient, Payload: payload})
	}
	return out
}

func (e *Engine) paused(env *mapper.CDPEnvelope) []Outbound {
	hits := env.Params.Get("hitBreakpoints").Array()
	ids := make([]string, 0, len(hits))
	mapped := false
	for _, hit := range hits {
		proxyIDs := e.rebinder.ProxyIDsForTarget(hit.String())
		if len(proxyIDs) == 0 {
			ids = append(ids, hit.String())
			continue
		}
		mapped = true
		ids = append(ids, proxyIDs...)
	}
	if !mapped {
		return []Outbound{{Destination: ToClient, Payload: env.Raw}}
	}
	payload, err := sjson.SetBytes(env.Raw, "params.hitBreakpoints", ids)
	if err != nil {
		e.drop(ToTarget, err)
		return []Outbound{{Destination: ToClient, Payload: env.Raw}}
	}
	return []Outbound{{Destination: ToClient, Payload: payload}}
}

// reject answers a malformed client request with an invalid params error.
func (e *Engine) reject(env *mapper.CDPEnvelope, reason string) []Outbound {
	err := &errors.MalformedMessageError{Method: env.Method, Reason: reason}
	e.drop(ToClient, err)
	payload, buildErr := mapper.NewErrorResponseBytes(env.ID, entity.CDPErrorInvalidParams, err.Error())
	if buildErr != nil {
		return nil
	}
	return []Outbound{{Destination: ToClient, Payload: payload}}
}

// fail answers a client request the proxy could not pass on.
func (e *Engine) fail(clientID int64, err error) []Outbound {
	e.drop(ToClient, err)
	payload, buildErr := mapper.NewErrorResponseBytes(clientID, entity.CDPErrorServer, err.Error())
	if buildErr != nil {
		return nil
	}
	return []Outbound{{Destination: ToClient, Payload: payload}}
}

func (e *Engine) replyToClient(clientID int64, result any) []Outbound {
	payload, err := mapper.NewResponseBytes(clientID, result)
	if err != nil {
		e.drop(ToTarget, err)
		return nil
	}
	return []Outbound{{Destination: ToClient, Payload: payload}}
}

func (e *Engine) drop(from Destination, err error) {
	e.dropped.Inc(1)
	e.logger.Warnw("dropping CDP message", "from", from.String(), zap.Error(err))
}

func (e *Engine) mappable(localPath string) bool {
	_, ok := e.scripts.transform.ToRemote(localPath)
	return ok
}

func (e *Engine) newID() int64 {
	e.nextID++
	return e.nextID
}

func (e *Engine) newBreakpointID() string {
	e.nextBreakpoint++
	return _breakpointIDPrefix + strconv.Itoa(e.nextBreakpoint)
}

func rewriteSetBreakpoint(raw []byte, id int64, remoteURL string) ([]byte, error) {
	payload, err := mapper.WithID(raw, id)
	if err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "params.url", remoteURL); err != nil {
		return nil, err
	}
	return sjson.DeleteBytes(payload, "params.urlRegex")
}

func breakpointResult(proxyID string, locations []entity.BreakpointLocation) map[string]any {
	if locations == nil {
		locations = []entity.BreakpointLocation{}
	}
	return map[string]any{
		"breakpointId": proxyID,
		"locations":    locations,
	}
}

func parseLocations(result gjson.Result) []entity.BreakpointLocation {
	locations := []entity.BreakpointLocation{}
	for _, loc := range result.Array() {
		scriptID := loc.Get("scriptId")
		if scriptID.Type != gjson.String {
			continue
		}
		location := entity.BreakpointLocation{
			ScriptID:   scriptID.String(),
			LineNumber: int(loc.Get("lineNumber").Int()),
		}
		if column := loc.Get("columnNumber"); column.Type == gjson.Number {
			c := int(column.Int())
			location.ColumnNumber = &c
		}
		locations = append(locations, location)
	}
	return locations
}
