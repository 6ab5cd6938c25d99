package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/cli"
	"github.com/aleung/fsm/internal/config"
	httpadapter "github.com/aleung/fsm/pkg/adapters/http"
	"github.com/aleung/fsm/pkg/adapters/file"
	"github.com/aleung/fsm/pkg/adapters/memory"
	redisadapter "github.com/aleung/fsm/pkg/adapters/redis"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/observability"
	"github.com/aleung/fsm/pkg/persistence/middleware"
	"github.com/aleung/fsm/pkg/ports"
	"github.com/aleung/fsm/pkg/session"
)

// stack is everything a long-running command needs to host machines
// loaded from one definition file.
type stack struct {
	doc      *file.Document
	manager  *session.Manager
	journal  ports.Journal
	streams  *httpadapter.StreamManager
	registry *prometheus.Registry
	close    func() error
}

// newStack loads path and assembles the session manager around it. The
// journal and locker come from Redis when cfg enables it, otherwise the
// journal is kept in memory and transitions are only guarded in-process.
func newStack(cfg config.Config, logger *slog.Logger, path string) (*stack, error) {
	doc, def, err := loadDefinition(cfg, logger, path)
	if err != nil {
		return nil, err
	}

	mode, err := cfg.ConcurrencyMode()
	if err != nil {
		return nil, err
	}

	s := &stack{
		doc:      doc,
		streams:  httpadapter.NewStreamManager(logger),
		registry: prometheus.NewRegistry(),
		close:    func() error { return nil },
	}
	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	machineOpts := []fsm.Option{fsm.WithConcurrency(mode)}

	if cfg.Redis.Enabled() {
		rj := redisadapter.NewJournal(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithSize(cfg.JournalSize),
		)
		s.journal = rj
		s.close = rj.Client().Close
		machineOpts = append(machineOpts, fsm.WithLocker(redisadapter.NewLocker(rj.Client(), cfg.Redis.Prefix), cfg.LockTTL))
		logger.Info("using redis journal and locker", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	} else {
		s.journal = memory.NewJournal(cfg.JournalSize)
	}

	if s.journal, err = protectJournal(s.journal, cfg.Journal); err != nil {
		return nil, errors.Join(err, s.close())
	}

	metrics := observability.NewMetrics(s.registry)
	machineOpts = append(machineOpts, fsm.WithLifecycleHooks(observability.Combine(
		observability.LogHooks(logger),
		metrics.Hooks(doc.Name),
		observability.JournalHooks(s.journal, logger),
		s.streams.Hooks(),
	)))

	s.manager, err = session.NewManager(def,
		session.WithLogger(logger),
		session.WithMaxEventNameSize(cfg.MaxEventNameSize),
		session.WithMachineOptions(machineOpts...),
	)
	if err != nil {
		return nil, errors.Join(err, s.close())
	}
	return s, nil
}

// protectJournal wraps j with masking and encryption as configured.
func protectJournal(j ports.Journal, cfg config.JournalConfig) (ports.Journal, error) {
	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Mask)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}

	key, err := cfg.KeyBytes()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(j, mws...), nil
}

// handler serves the machine API with /metrics alongside it.
func (s *stack) handler(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Mount("/", httpadapter.NewHandler(s.manager,
		httpadapter.WithJournal(s.journal),
		httpadapter.WithStreams(s.streams),
		httpadapter.WithLogger(logger),
	))
	return r
}

// loadDefinition compiles path against the builtin actions and the process
// actions configured in cfg.
func loadDefinition(cfg config.Config, logger *slog.Logger, path string) (*file.Document, domain.MachineDefinition, error) {
	reg, err := cli.NewActionRegistry(logger, cfg.Actions)
	if err != nil {
		return nil, domain.MachineDefinition{}, err
	}
	doc, def, err := file.Load(path, reg)
	if err != nil {
		return nil, domain.MachineDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, def, nil
}
