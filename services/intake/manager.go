package intake

import (
	"context"
	"sync"
	"time"

	"refurb-app/models"
	"refurb-app/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GatewayFactory returns the gateway of a unit database.
type GatewayFactory func(unit string) (Gateway, error)

// CacheInvalidator drops cached catalogue data of a unit.
type CacheInvalidator interface {
	InvalidateUnit(unit string)
}

type ManagerConfig struct {
	DefaultMode Mode
	Policy      OverReceiptPolicy
	// TTL is the idle time after which Sweep closes a session. Zero disables sweeping.
	TTL time.Duration
}

// Manager owns the open intake sessions of the process.
type Manager struct {
	cfg        ManagerConfig
	newGateway GatewayFactory
	cache      CacheInvalidator
	hooks      Hooks
	log        *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithHooks(h Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

func WithCache(c CacheInvalidator) Option {
	return func(m *Manager) { m.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(factory GatewayFactory, cfg ManagerConfig, opts ...Option) *Manager {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeBulk
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyAllow
	}
	m := &Manager{
		cfg:        cfg,
		newGateway: factory,
		log:        zap.L(),
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a fresh session for orderID. Planned lines and the received count are read here once.
func (m *Manager) Open(ctx context.Context, unit string, orderID, actor types.SnowflakeID, mode Mode) (*Session, error) {
	if mode == "" {
		mode = m.cfg.DefaultMode
	}

	gw, err := m.newGateway(unit)
	if err != nil {
		return nil, newError(KindTransient, "Failed to connect database", "", err)
	}

	order, err := gw.GetOrder(ctx, orderID)
	if err != nil {
		return nil, newError(KindTransient, "Failed to load purchase order", "", err)
	}
	if order == nil {
		return nil, newError(KindNotFound, msgOrderNotFound, "", nil)
	}
	switch order.Status {
	case models.PurchaseOrderCancelled:
		return nil, newError(KindState, "Cannot receive devices on a cancelled purchase order", "", nil)
	case models.PurchaseOrderComplete:
		return nil, newError(KindState, "Cannot receive devices on a completed purchase order", "", nil)
	}

	planned, err := gw.ListPlannedLineItems(ctx, orderID)
	if err != nil {
		return nil, newError(KindTransient, "Failed to load planned devices", "", err)
	}
	received, err := gw.CountOrderLinks(ctx, orderID, true)
	if err != nil {
		return nil, newError(KindTransient, "Failed to count received devices", "", err)
	}

	if m.cache != nil {
		m.cache.InvalidateUnit(unit)
	}

	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		Unit:       unit,
		Actor:      actor,
		Order:      *order,
		Planned:    planned,
		gw:         gw,
		resolver:   NewResolver(gw),
		policy:     m.cfg.Policy,
		hooks:      m.hooks,
		log:        m.log,
		now:        m.now,
		mode:       mode,
		state:      StateIdle,
		baseline:   received,
		openedAt:   now,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info("intake session opened",
		zap.String("session", s.ID),
		zap.String("unit", unit),
		zap.String("po_number", order.PoNumber),
		zap.String("mode", string(mode)),
		zap.Int("planned_lines", len(planned)),
		zap.Int("received", received))
	return s, nil
}

// Get returns the session id of unit.
func (m *Manager) Get(unit, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.Unit != unit {
		return nil, newError(KindNotFound, msgSessionNotFound, "", nil)
	}
	return s, nil
}

// Close discards the in-memory state of a session. Devices already written stay committed.
func (m *Manager) Close(unit, id string) error {
	s, err := m.Get(unit, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	s.close()
	m.log.Info("intake session closed", zap.String("session", id))
	return nil
}

// Sweep closes sessions idle for longer than the configured TTL and returns how many it closed.
func (m *Manager) Sweep() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.TTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		last, busy := s.idleSince()
		if !busy && last.Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		m.log.Info("intake session expired", zap.String("session", s.ID), zap.String("unit", s.Unit))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
