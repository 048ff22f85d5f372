package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/model"
)

//go:generate mockgen -destination=repositorymock/session_mock.go -package=repositorymock . Repository

const _activeSessionsGauge = "active_sessions"

// Repository is the registry of debug sessions.
type Repository interface {
	// Create registers a new session built from the template and returns it with a fresh UUID and NotActivated status.
	Create(ctx context.Context, template *entity.Session) (*entity.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	GetAllForClient(ctx context.Context, clientUUID uuid.UUID) ([]*entity.Session, error)
	List(ctx context.Context) ([]*entity.Session, error)
	// SetStatus moves a session forward. Backward moves fail with InvalidTransitionError and change nothing.
	SetStatus(ctx context.Context, id uuid.UUID, status entity.SessionStatus) (*entity.Session, error)
	// ForceStatus sets the status regardless of the current one.
	ForceStatus(ctx context.Context, id uuid.UUID, status entity.SessionStatus) (*entity.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SessionCount(ctx context.Context) (int, error)
}

// Option configures the repository.
type Option func(*repository)

// WithUUIDGenerator overrides how session ids are generated.
func WithUUIDGenerator(gen func() (uuid.UUID, error)) Option {
	return func(r *repository) {
		r.newUUID = gen
	}
}

// WithNow overrides the clock used for CreatedAt.
func WithNow(now func() time.Time) Option {
	return func(r *repository) {
		r.now = now
	}
}

type repository struct {
	mu       sync.Mutex
	memstore map[uuid.UUID]*model.Session
	stats    tally.Scope
	newUUID  func() (uuid.UUID, error)
	now      func() time.Time
}

// New returns a repository to a key-value Session data store.
func New(stats tally.Scope, opts ...Option) Repository {
	r := &repository{
		memstore: make(map[uuid.UUID]*model.Session),
		stats:    stats,
		newUUID:  uuid.NewV4,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a copy of template under a newly generated UUID.
func (r *repository) Create(ctx context.Context, template *entity.Session) (*entity.Session, error) {
	if template == nil {
		return nil, errors.New("can't save nil session")
	}
	id, err := r.newUUID()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := mapper.SessionToModel(template)
	m.UUID = id
	m.Status = int(entity.SessionStatusNotActivated)
	m.CreatedAt = r.now()
	r.memstore[id] = m
	r.updateGauge()
	return mapper.ModelToSession(m)
}

// Get returns the Session associated with the given id.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.memstore[id]
	if !ok {
		return nil, &errors.UUIDNotFoundError{UUID: id}
	}
	return mapper.ModelToSession(f)
}

// GetAllForClient returns all sessions started over the given control connection.
func (r *repository) GetAllForClient(ctx context.Context, clientUUID uuid.UUID) ([]*entity.Session, error) {
	return r.filter(func(s *model.Session) bool {
		return s.ClientUUID == clientUUID
	}), nil
}

// List returns every registered session, oldest first.
func (r *repository) List(ctx context.Context) ([]*entity.Session, error) {
	return r.filter(func(*model.Session) bool { return true }), nil
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status entity.SessionStatus) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.memstore[id]
	if !ok {
		return nil, &errors.UUIDNotFoundError{UUID: id}
	}
	current := entity.SessionStatus(f.Status)
	if !current.CanTransitionTo(status) {
		return nil, &errors.InvalidTransitionError{
			SessionUUID: id,
			From:        current.String(),
			To:          status.String(),
		}
	}
	f.Status = int(status)
	return mapper.ModelToSession(f)
}

func (r *repository) ForceStatus(ctx context.Context, id uuid.UUID, status entity.SessionStatus) (*entity.Session, error) {
	if !status.Valid() {
		return nil, &errors.InvalidTransitionError{SessionUUID: id, To: status.String()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.memstore[id]
	if !ok {
		return nil, &errors.UUIDNotFoundError{UUID: id}
	}
	f.Status = int(status)
	return mapper.ModelToSession(f)
}

// Delete removes the Session associated with the given id.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, id)
	r.updateGauge()
	return nil
}

// SessionCount returns the total count of registered sessions.
func (r *repository) SessionCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}

func (r *repository) filter(keep func(*model.Session) bool) []*entity.Session {
	found := make([]*entity.Session, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.memstore {
		if keep(s) {
			sess, err := mapper.ModelToSession(s)
			if err == nil {
				found = append(found, sess)
			}
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	return found
}

func (r *repository) updateGauge() {
	r.stats.Gauge(_activeSessionsGauge).Update(float64(len(r.memstore)))
}
