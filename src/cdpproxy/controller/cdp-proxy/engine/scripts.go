package engine

import (
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
)

const _defaultHistoryLimit = 512

// ScriptParsed carries the fields of a Debugger.scriptParsed event the mapper needs.
type ScriptParsed struct {
	ScriptID    string
	URL         string
	StartLine   int
	StartColumn int
	EndLine     int
}

// ScriptMapper tracks the scripts a target has loaded and which of them are current.
// It is not safe for concurrent use; the session actor owns it.
type ScriptMapper struct {
	transform    PathTransform
	historyLimit int
	generation   int

	byID    map[string]*entity.ScriptRecord
	current map[string]*entity.ScriptRecord
	// records holds current and retained superseded records in registration order.
	records []*entity.ScriptRecord
}

// NewScriptMapper returns a mapper that keeps at most historyLimit superseded records.
func NewScriptMapper(transform PathTransform, historyLimit int) *ScriptMapper {
	if historyLimit <= 0 {
		historyLimit = _defaultHistoryLimit
	}
	return &ScriptMapper{
		transform:    transform,
		historyLimit: historyLimit,
		byID:         make(map[string]*entity.ScriptRecord),
		current:      make(map[string]*entity.ScriptRecord),
	}
}

// Register records a parsed script. A script id that is already known returns the existing record with
// isNew false. Otherwise the new record becomes current for its key and the records it replaced are
// returned as superseded. A script that starts at the top of its resource replaces every current record at
// its path, embedded ones included.
func (m *ScriptMapper) Register(p ScriptParsed) (rec *entity.ScriptRecord, superseded []*entity.ScriptRecord, isNew bool) {
	if existing, ok := m.byID[p.ScriptID]; ok {
		return existing, nil, false
	}

	rec = &entity.ScriptRecord{
		ScriptID:      p.ScriptID,
		RemoteURL:     p.URL,
		LocalURL:      p.URL,
		Discriminator: entity.Discriminator(p.StartLine, p.StartColumn),
		StartLine:     p.StartLine,
		EndLine:       p.EndLine,
		Generation:    m.generation,
	}
	if local, ok := m.transform.ToLocal(p.URL); ok {
		rec.LocalPath = local
		rec.LocalURL = LocalURL(local)
	}

	if rec.LocalPath != "" && rec.Discriminator == "" {
		superseded = m.Supersede(rec.LocalPath)
	}
	key := rec.Key()
	if prev, ok := m.current[key]; ok {
		prev.Superseded = true
		superseded = append(superseded, prev)
	}
	m.current[key] = rec
	m.byID[rec.ScriptID] = rec
	m.records = append(m.records, rec)
	m.compact()
	return rec, superseded, true
}

// ByScriptID returns the record for a script id, current or retained.
func (m *ScriptMapper) ByScriptID(scriptID string) (*entity.ScriptRecord, bool) {
	rec, ok := m.byID[scriptID]
	return rec, ok
}

// IsCurrent reports whether the script id belongs to a current record.
func (m *ScriptMapper) IsCurrent(scriptID string) bool {
	rec, ok := m.byID[scriptID]
	return ok && !rec.Superseded
}

// Resolve returns the current record for a local path or file:// URL containing line.
// Among several embedded scripts of one document the innermost one wins.
func (m *ScriptMapper) Resolve(localPathOrURL string, line int) (*entity.ScriptRecord, bool) {
	local, ok := LocalPathFromURL(localPathOrURL)
	if !ok {
		return nil, false
	}
	var best *entity.ScriptRecord
	for _, rec := range m.records {
		if rec.Superseded || rec.LocalPath == "" || !SamePath(rec.LocalPath, local) || !rec.Contains(line) {
			continue
		}
		if best == nil || rec.StartLine > best.StartLine {
			best = rec
		}
	}
	return best, best != nil
}

// Current returns the current records in registration order.
func (m *ScriptMapper) Current() []*entity.ScriptRecord {
	res := make([]*entity.ScriptRecord, 0, len(m.current))
	for _, rec := range m.records {
		if !rec.Superseded {
			res = append(res, rec)
		}
	}
	return res
}

// Supersede marks every current record at localPath as superseded and returns them.
func (m *ScriptMapper) Supersede(localPath string) []*entity.ScriptRecord {
	var res []*entity.ScriptRecord
	for _, rec := range m.Current() {
		if rec.LocalPath != "" && SamePath(rec.LocalPath, localPath) {
			rec.Superseded = true
			delete(m.current, rec.Key())
			res = append(res, rec)
		}
	}
	m.compact()
	return res
}

// SupersedeAll marks every current record as superseded and starts a new generation.
// It is used when the target drops all execution contexts, for example on page reload.
func (m *ScriptMapper) SupersedeAll() []*entity.ScriptRecord {
	res := m.Current()
	for _, rec := range res {
		rec.Superseded = true
	}
	m.current = make(map[string]*entity.ScriptRecord)
	m.generation++
	m.compact()
	return res
}

// compact drops the oldest superseded records once more than historyLimit are retained.
func (m *ScriptMapper) compact() {
	excess := len(m.records) - len(m.current) - m.historyLimit
	if excess <= 0 {
		return
	}
	kept := m.records[:0]
	for _, rec := range m.records {
		if excess > 0 && rec.Superseded {
			delete(m.byID, rec.ScriptID)
			excess--
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(m.records); i++ {
		m.records[i] = nil
	}
	m.records = kept
}
