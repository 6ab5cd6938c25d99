package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/internal/validator"
	"github.com/aleung/fsm/pkg/domain"
)

var (
	// ErrInstanceNotFound is returned for an unknown instance ID.
	ErrInstanceNotFound = errors.New("machine instance not found")
	// ErrInvalidID is returned for an empty instance ID.
	ErrInvalidID = errors.New("instance id cannot be empty")
)

// lockEntry holds the creation mutex of one instance ID and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns many live machines built from one shared definition, keyed by
// instance ID. Instances live in memory only.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	def          domain.MachineDefinition
	machineOpts  []fsm.Option
	logger       *slog.Logger
	maxEventName int

	mu    sync.Mutex            // Global lock for the locks map
	locks map[string]*lockEntry // Per-ID creation locks

	instancesMu sync.RWMutex
	instances   map[string]*fsm.Machine
}

// Option configures the Manager.
type Option func(*Manager)

// WithMachineOptions applies opts to every machine the manager creates.
// The instance ID always becomes the machine name.
func WithMachineOptions(opts ...fsm.Option) Option {
	return func(m *Manager) {
		m.machineOpts = append(m.machineOpts, opts...)
	}
}

// WithLogger configures a logger for the Manager. It is also handed to the
// machines unless WithMachineOptions overrides it.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMaxEventNameSize bounds the names accepted by Send. n <= 0 keeps
// DefaultMaxEventNameSize.
func WithMaxEventNameSize(n int) Option {
	return func(m *Manager) {
		m.maxEventName = n
	}
}

// NewManager validates def once and returns a manager for its instances.
func NewManager(def domain.MachineDefinition, opts ...Option) (*Manager, error) {
	if err := validator.Validate(def); err != nil {
		return nil, err
	}
	m := &Manager{
		def:       def,
		locks:     make(map[string]*lockEntry),
		instances: make(map[string]*fsm.Machine),
		logger:    logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// withLock executes fn while holding the creation lock for id.
func (m *Manager) withLock(id string, fn func() error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()
	return fn()
}

// Definition returns the shared definition.
func (m *Manager) Definition() domain.MachineDefinition {
	return m.def
}

// GetOrCreate returns the instance for id, creating and initializing it if
// needed. created reports whether this call created it. An instance whose
// Init fails is discarded.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (machine *fsm.Machine, created bool, err error) {
	if id == "" {
		return nil, false, ErrInvalidID
	}

	err = m.withLock(id, func() error {
		if existing, ok := m.lookup(id); ok {
			machine = existing
			return nil
		}

		opts := make([]fsm.Option, 0, len(m.machineOpts)+2)
		opts = append(opts, fsm.WithLogger(m.logger))
		opts = append(opts, m.machineOpts...)
		opts = append(opts, fsm.WithName(id))

		fresh, err := fsm.Create(m.def, opts...)
		if err != nil {
			return fmt.Errorf("failed to create instance: %w", err)
		}
		if err := fresh.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize instance: %w", err)
		}

		m.instancesMu.Lock()
		m.instances[id] = fresh
		m.instancesMu.Unlock()

		m.logger.Debug("instance created", "instance", id, "state", fresh.CurrentState())
		machine, created = fresh, true
		return nil
	})
	return machine, created, err
}

// Get returns an existing instance.
func (m *Manager) Get(id string) (*fsm.Machine, error) {
	machine, ok := m.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return machine, nil
}

func (m *Manager) lookup(id string) (*fsm.Machine, bool) {
	m.instancesMu.RLock()
	defer m.instancesMu.RUnlock()
	machine, ok := m.instances[id]
	return machine, ok
}

// Send dispatches evt to an existing instance. The event name is passed
// through SanitizeEventName first, bounded by WithMaxEventNameSize.
func (m *Manager) Send(ctx context.Context, id string, evt domain.Event) (*fsm.Machine, error) {
	machine, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if evt.Name, err = SanitizeEventName(evt.Name, m.maxEventName); err != nil {
		return machine, err
	}
	return machine, machine.Send(ctx, evt)
}

// Delete forgets an instance. In-flight calls on it complete normally.
func (m *Manager) Delete(id string) error {
	return m.withLock(id, func() error {
		m.instancesMu.Lock()
		defer m.instancesMu.Unlock()

		if _, ok := m.instances[id]; !ok {
			return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		delete(m.instances, id)
		m.logger.Debug("instance deleted", "instance", id)
		return nil
	})
}

// List returns the instance IDs, sorted.
func (m *Manager) List() []string {
	m.instancesMu.RLock()
	defer m.instancesMu.RUnlock()

	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
