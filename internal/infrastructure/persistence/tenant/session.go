package tenant

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSetting is the Postgres setting the row level security policies read
const DefaultSetting = "app.current_tenant"

// DefaultReleaseTimeout bounds the reset statement run on release
const DefaultReleaseTimeout = 5 * time.Second

// ErrSessionReleased is returned when a released session is used again
var ErrSessionReleased = errors.New("tenant: session already released")

var settingPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*\.[a-z_][a-z0-9_]*$`)

// ManagerConfig configures a Manager
type ManagerConfig struct {
	Setting        string
	ReleaseTimeout time.Duration
}

// Manager hands out tenant sessions over the shared connection pool
type Manager struct {
	db             *gorm.DB
	tenants        identity.TenantRepository
	setting        string
	releaseTimeout time.Duration
	logger         *zap.Logger
	metrics        SessionMetrics
}

// SessionMetrics observes session lifecycle events. A nil value disables it.
type SessionMetrics interface {
	SessionAcquired(ctx context.Context)
	SessionReleased(ctx context.Context, discarded bool)
}

// NewManager creates a Manager. tenants must read the tenants table through
// the root pool, since the tenant is not known yet when it is consulted.
func NewManager(db *gorm.DB, tenants identity.TenantRepository, cfg ManagerConfig, log *zap.Logger) (*Manager, error) {
	if cfg.Setting == "" {
		cfg.Setting = DefaultSetting
	}
	if !settingPattern.MatchString(cfg.Setting) {
		return nil, fmt.Errorf("tenant: invalid setting name %q", cfg.Setting)
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = DefaultReleaseTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		db:             db,
		tenants:        tenants,
		setting:        cfg.Setting,
		releaseTimeout: cfg.ReleaseTimeout,
		logger:         log.Named("tenant"),
	}, nil
}

// WithMetrics attaches lifecycle metrics to the manager
func (m *Manager) WithMetrics(metrics SessionMetrics) *Manager {
	m.metrics = metrics
	return m
}

// Setting returns the Postgres setting name used for the tenant marker
func (m *Manager) Setting() string {
	return m.setting
}

// Acquire validates the tenant and checks out a dedicated connection for it.
// The tenant marker is set lazily before the session's first statement.
// The caller must Release the session; prefer WithSession.
func (m *Manager) Acquire(ctx context.Context, tenantID uuid.UUID) (*Session, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Tenant id is required")
	}

	t, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Tenant not found")
		}
		return nil, shared.NewTransactionFailure("look up tenant", err)
	}
	if !t.IsActive() {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Tenant is not active")
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, shared.NewTransactionFailure("open pool", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, shared.NewTransactionFailure("acquire connection", err)
	}

	bound := m.db.Session(&gorm.Session{NewDB: true, Context: context.Background()})
	bound.Statement.ConnPool = conn

	if m.metrics != nil {
		m.metrics.SessionAcquired(ctx)
	}

	return &Session{
		tenantID:       tenantID,
		tenant:         t,
		conn:           conn,
		db:             bound,
		setting:        m.setting,
		releaseTimeout: m.releaseTimeout,
		logger:         m.logger.With(zap.String("tenant_id", tenantID.String())),
		metrics:        m.metrics,
	}, nil
}

// WithSession acquires a session, runs fn and releases the session on every
// exit path, panics included
func (m *Manager) WithSession(ctx context.Context, tenantID uuid.UUID, fn func(s *Session) error) error {
	s, err := m.Acquire(ctx, tenantID)
	if err != nil {
		return err
	}
	defer s.Release()
	return fn(s)
}

type sessionState int

const (
	statePending sessionState = iota
	stateScoped
	stateBroken
	stateReleased
)

// Session is a connection bound to one tenant for its whole lifetime
type Session struct {
	tenantID       uuid.UUID
	tenant         *identity.Tenant
	conn           *sql.Conn
	db             *gorm.DB
	setting        string
	releaseTimeout time.Duration
	logger         *zap.Logger
	metrics        SessionMetrics

	mu    sync.Mutex
	state sessionState
	err   error
}

// TenantID returns the tenant the session is bound to
func (s *Session) TenantID() uuid.UUID {
	return s.tenantID
}

// Tenant returns the tenant row validated at acquire time
func (s *Session) Tenant() *identity.Tenant {
	return s.tenant
}

// DB returns a GORM handle on the session's connection, setting the tenant
// marker first if this is the session's first use
func (s *Session) DB(ctx context.Context) (*gorm.DB, error) {
	if err := s.ensureScoped(ctx); err != nil {
		return nil, err
	}
	return s.db.WithContext(ctx), nil
}

// Transaction runs fn in a database transaction on the session's connection.
// Cancelling ctx rolls the transaction back.
func (s *Session) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(fn)
}

func (s *Session) ensureScoped(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateScoped:
		return nil
	case stateBroken:
		return s.err
	case stateReleased:
		return ErrSessionReleased
	}

	if _, err := s.conn.ExecContext(ctx, "SELECT set_config($1, $2, false)", s.setting, s.tenantID.String()); err != nil {
		s.state = stateBroken
		s.err = shared.WrapDomainError(shared.CodeTransactionFailure, "set tenant context failed", err)
		logger.Enrich(ctx, s.logger).Error("Failed to set tenant context", zap.Error(err))
		return s.err
	}
	s.state = stateScoped
	return nil
}

// Release resets the tenant marker and returns the connection to the pool.
// If the reset fails the physical connection is discarded instead, so it can
// never be reused while carrying a tenant. Release is idempotent.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateReleased {
		return
	}
	s.state = stateReleased

	ctx, cancel := context.WithTimeout(context.Background(), s.releaseTimeout)
	defer cancel()

	discarded := false
	if _, err := s.conn.ExecContext(ctx, "RESET "+s.setting); err != nil {
		s.logger.Warn("Tenant context reset failed, discarding connection", zap.Error(err))
		_ = s.conn.Raw(func(any) error { return driver.ErrBadConn })
		discarded = true
	} else if err := s.conn.Close(); err != nil {
		s.logger.Warn("Failed to return connection to pool", zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.SessionReleased(ctx, discarded)
	}
}
