package engine

import (
	"regexp"
	"slices"
	"strings"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
)

// BindAction asks the target to set a breakpoint against one script instance.
type BindAction struct {
	SpecID    string
	ScriptID  string
	RemoteURL string
	Line      int
	Column    int
	HasColumn bool
	Condition string
	// RemoveTargetID is a breakpoint left over from a superseded script. It is removed before the new one is set.
	RemoveTargetID string
}

// BindOutcome is the effect of a target's answer to a bind request.
type BindOutcome int

const (
	// BindBound means the breakpoint is now bound to the script the request was for.
	BindBound BindOutcome = iota
	// BindStale means the answer no longer applies because the script or the breakpoint went away.
	BindStale
	// BindFailed means the target rejected the breakpoint. The breakpoint went back to Pending.
	BindFailed
)

// Rebinder keeps the debugger client's breakpoints and binds them to whichever script instances are current.
// A breakpoint is bound once per script slot: a url breakpoint in the innermost script containing its line,
// a urlRegex breakpoint in every script it matches. At most one set request per slot is outstanding.
// Breakpoints set at one location share the target breakpoint the first of them created.
// It is not safe for concurrent use; the session actor owns it.
type Rebinder struct {
	scripts *ScriptMapper

	specs   map[string]*entity.BreakpointSpec
	regexes map[string]*regexp.Regexp
	order   []string
	retired map[string]struct{}
}

// NewRebinder returns a Rebinder that binds against the current records of scripts.
func NewRebinder(scripts *ScriptMapper) *Rebinder {
	return &Rebinder{
		scripts: scripts,
		specs:   make(map[string]*entity.BreakpointSpec),
		regexes: make(map[string]*regexp.Regexp),
		retired: make(map[string]struct{}),
	}
}

// Add starts tracking a breakpoint. re is required when the breakpoint was requested by urlRegex.
func (r *Rebinder) Add(spec *entity.BreakpointSpec, re *regexp.Regexp) {
	r.specs[spec.ID] = spec
	if re != nil {
		r.regexes[spec.ID] = re
	}
	r.order = append(r.order, spec.ID)
}

// Get returns the breakpoint with the given proxy id.
func (r *Rebinder) Get(specID string) (*entity.BreakpointSpec, bool) {
	spec, ok := r.specs[specID]
	return spec, ok
}

// Matches reports whether a breakpoint applies to a script instance.
func (r *Rebinder) Matches(spec *entity.BreakpointSpec, rec *entity.ScriptRecord) bool {
	if !rec.Contains(spec.Line) {
		return false
	}
	if spec.LocalPath != "" {
		return rec.LocalPath != "" && SamePath(spec.LocalPath, rec.LocalPath)
	}
	re, ok := r.regexes[spec.ID]
	if !ok {
		return false
	}
	return re.MatchString(rec.LocalURL) || re.MatchString(rec.RemoteURL)
}

// Candidates returns the current scripts a breakpoint is to be set in.
func (r *Rebinder) Candidates(spec *entity.BreakpointSpec) []*entity.ScriptRecord {
	if spec.LocalPath != "" {
		rec, ok := r.scripts.Resolve(spec.LocalPath, spec.Line)
		if !ok {
			return nil
		}
		return []*entity.ScriptRecord{rec}
	}
	var res []*entity.ScriptRecord
	for _, rec := range r.scripts.Current() {
		if r.Matches(spec, rec) {
			res = append(res, rec)
		}
	}
	return res
}

// Bind returns the request that binds a breakpoint to rec and marks the slot in flight.
func (r *Rebinder) Bind(spec *entity.BreakpointSpec, rec *entity.ScriptRecord) BindAction {
	key := bindingKey(spec, rec)
	b, ok := spec.Binding(key)
	if !ok {
		b = &entity.ScriptBinding{Key: key}
		spec.Bindings = append(spec.Bindings, b)
	}

	action := BindAction{
		SpecID:    spec.ID,
		ScriptID:  rec.ScriptID,
		RemoteURL: rec.RemoteURL,
		Line:      spec.Line,
		Column:    spec.Column,
		HasColumn: spec.HasColumn,
		Condition: spec.Condition,
	}
	if targetID := b.TargetBreakpointID; targetID != "" {
		b.TargetBreakpointID = ""
		if r.release(targetID) {
			action.RemoveTargetID = targetID
		}
	}
	b.RemoteURL = rec.RemoteURL
	b.InFlightScriptID = rec.ScriptID
	return action
}

// OnSuperseded moves breakpoints bound only to superseded scripts to Rebinding.
func (r *Rebinder) OnSuperseded(records []*entity.ScriptRecord) {
	if len(records) == 0 {
		return
	}
	for _, id := range r.order {
		r.refresh(r.specs[id])
	}
}

// OnScriptRegistered returns the bind requests a newly registered script calls for.
// Slots bound to a current script, or with a request outstanding, are left alone: the answer to an
// outstanding request that went stale brings the slot here again through OnBindResult.
func (r *Rebinder) OnScriptRegistered(rec *entity.ScriptRecord) []BindAction {
	var actions []BindAction
	for _, id := range r.order {
		spec := r.specs[id]
		if !r.wants(spec, rec) {
			continue
		}
		if b, ok := spec.Binding(bindingKey(spec, rec)); ok {
			if b.InFlightScriptID != "" || (b.BoundScriptID != "" && r.scripts.IsCurrent(b.BoundScriptID)) {
				continue
			}
		}
		actions = append(actions, r.Bind(spec, rec))
	}
	return actions
}

// OnBindResult applies the target's answer to a set request for specID against scriptID. errMsg is empty
// on success. When the answer is stale and a current script takes the slot, the follow-up request is
// returned; it removes targetID first.
func (r *Rebinder) OnBindResult(specID, scriptID, targetID, errMsg string) (BindOutcome, *BindAction) {
	spec, ok := r.specs[specID]
	if !ok {
		return BindStale, nil
	}
	b := inFlight(spec, scriptID)
	if b == nil {
		return BindStale, nil
	}
	b.InFlightScriptID = ""

	if !r.scripts.IsCurrent(scriptID) {
		if errMsg == "" && targetID != "" {
			r.retired[targetID] = struct{}{}
			b.TargetBreakpointID = targetID
		}
		if rec, ok := r.slotScript(spec, b.Key); ok {
			action := r.Bind(spec, rec)
			return BindStale, &action
		}
		return BindStale, nil
	}

	if errMsg != "" {
		if !IsBreakpointExists(errMsg) {
			unbind(spec, b)
			r.refresh(spec)
			return BindFailed, nil
		}
		targetID = r.sharedTarget(spec, b, scriptID)
	}

	b.BoundScriptID = scriptID
	b.TargetBreakpointID = targetID
	if targetID != "" {
		delete(r.retired, targetID)
		r.adopt(spec, b)
	}
	r.refresh(spec)
	return BindBound, nil
}

// Remove marks a breakpoint Removed and returns the target breakpoints no other breakpoint shares.
func (r *Rebinder) Remove(specID string) (targetIDs []string, ok bool) {
	spec, ok := r.specs[specID]
	if !ok {
		return nil, false
	}
	r.drop(specID)
	for _, b := range spec.Bindings {
		targetID := b.TargetBreakpointID
		if targetID == "" || slices.Contains(targetIDs, targetID) {
			continue
		}
		if r.release(targetID) {
			targetIDs = append(targetIDs, targetID)
		}
	}
	spec.State = entity.BreakpointRemoved
	spec.Bindings = nil
	return targetIDs, true
}

// ProxyIDsForTarget maps a target breakpoint id to the proxy ids of every breakpoint sharing it.
func (r *Rebinder) ProxyIDsForTarget(targetID string) []string {
	var ids []string
	for _, id := range r.order {
		for _, b := range r.specs[id].Bindings {
			if b.TargetBreakpointID == targetID {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// Holds reports whether a live breakpoint still refers to a target breakpoint.
func (r *Rebinder) Holds(targetID string) bool {
	return len(r.ProxyIDsForTarget(targetID)) > 0
}

// IsRetired reports whether a target breakpoint id was replaced or removed by the proxy.
func (r *Rebinder) IsRetired(targetID string) bool {
	_, ok := r.retired[targetID]
	return ok
}

// snapshot returns copies of the live breakpoints in creation order.
func (r *Rebinder) snapshot() []entity.BreakpointSpec {
	res := make([]entity.BreakpointSpec, 0, len(r.order))
	for _, id := range r.order {
		spec := *r.specs[id]
		spec.Bindings = make([]*entity.ScriptBinding, 0, len(r.specs[id].Bindings))
		for _, b := range r.specs[id].Bindings {
			b := *b
			spec.Bindings = append(spec.Bindings, &b)
		}
		res = append(res, spec)
	}
	return res
}

// wants reports whether rec is a script the breakpoint is to be set in.
func (r *Rebinder) wants(spec *entity.BreakpointSpec, rec *entity.ScriptRecord) bool {
	if spec.LocalPath == "" {
		return r.Matches(spec, rec)
	}
	best, ok := r.scripts.Resolve(spec.LocalPath, spec.Line)
	return ok && best == rec
}

// slotScript returns the current script for a binding slot.
func (r *Rebinder) slotScript(spec *entity.BreakpointSpec, key string) (*entity.ScriptRecord, bool) {
	for _, rec := range r.Candidates(spec) {
		if bindingKey(spec, rec) == key {
			return rec, true
		}
	}
	return nil, false
}

// sharedTarget finds the target breakpoint another binding already holds at the location the target
// refused to set twice.
func (r *Rebinder) sharedTarget(spec *entity.BreakpointSpec, b *entity.ScriptBinding, scriptID string) string {
	rec, ok := r.scripts.ByScriptID(scriptID)
	if !ok {
		return ""
	}
	for _, id := range r.order {
		other := r.specs[id]
		if other.Line != spec.Line || other.Column != spec.Column {
			continue
		}
		for _, ob := range other.Bindings {
			if ob != b && ob.TargetBreakpointID != "" && ob.RemoteURL == rec.RemoteURL {
				return ob.TargetBreakpointID
			}
		}
	}
	return ""
}

// adopt hands b's target breakpoint to bound bindings at the same location that were told it already
// existed while no live binding held it.
func (r *Rebinder) adopt(spec *entity.BreakpointSpec, b *entity.ScriptBinding) {
	for _, id := range r.order {
		other := r.specs[id]
		if other.Line != spec.Line || other.Column != spec.Column {
			continue
		}
		for _, ob := range other.Bindings {
			if ob != b && ob.TargetBreakpointID == "" && ob.BoundScriptID != "" && ob.InFlightScriptID == "" && ob.RemoteURL == b.RemoteURL {
				ob.TargetBreakpointID = b.TargetBreakpointID
			}
		}
	}
}

// release retires a target breakpoint once no live binding refers to it and reports whether it did.
func (r *Rebinder) release(targetID string) bool {
	if r.Holds(targetID) {
		return false
	}
	r.retired[targetID] = struct{}{}
	return true
}

func (r *Rebinder) refresh(spec *entity.BreakpointSpec) {
	state := entity.BreakpointPending
	for _, b := range spec.Bindings {
		if b.BoundScriptID == "" {
			continue
		}
		if r.scripts.IsCurrent(b.BoundScriptID) {
			state = entity.BreakpointBound
			break
		}
		state = entity.BreakpointRebinding
	}
	spec.State = state
}

func (r *Rebinder) drop(specID string) {
	delete(r.specs, specID)
	delete(r.regexes, specID)
	for i, id := range r.order {
		if id == specID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// bindingKey is the slot a script takes for a breakpoint. A url breakpoint has a single slot.
func bindingKey(spec *entity.BreakpointSpec, rec *entity.ScriptRecord) string {
	if spec.LocalPath != "" {
		return ""
	}
	return rec.Key()
}

func inFlight(spec *entity.BreakpointSpec, scriptID string) *entity.ScriptBinding {
	if scriptID == "" {
		return nil
	}
	for _, b := range spec.Bindings {
		if b.InFlightScriptID == scriptID {
			return b
		}
	}
	return nil
}

func unbind(spec *entity.BreakpointSpec, b *entity.ScriptBinding) {
	spec.Bindings = slices.DeleteFunc(spec.Bindings, func(other *entity.ScriptBinding) bool { return other == b })
}

// IsBreakpointExists reports whether a CDP error message says the breakpoint is already set.
func IsBreakpointExists(errMsg string) bool {
	return strings.Contains(strings.ToLower(errMsg), "already exists")
}
