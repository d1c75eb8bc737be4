package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/villaops/dispatchd/api"
	"github.com/villaops/dispatchd/config"
	"github.com/villaops/dispatchd/core/audit"
	"github.com/villaops/dispatchd/core/dispatch"
	coremetrics "github.com/villaops/dispatchd/core/metrics"
	"github.com/villaops/dispatchd/core/notify"
	"github.com/villaops/dispatchd/core/staff"
	"github.com/villaops/dispatchd/core/storage"
	"github.com/villaops/dispatchd/infra/logger"
	"github.com/villaops/dispatchd/infra/metrics"
	"github.com/villaops/dispatchd/infra/push"
	"github.com/villaops/dispatchd/internal/eventbus"
)

// Service orchestrates the dispatch core, the expiry sweeper and the
// HTTP surface.
type Service struct {
	Orchestrator *dispatch.AutoDispatcher
	Acceptor     *dispatch.Acceptor
	Sweeper      *dispatch.Sweeper
	Store        storage.Store
	Roster       *staff.Roster

	auditLog audit.Log
	pushc    *push.PahoClient
	bus      eventbus.EventBus
	sink     coremetrics.Sink
	router   http.Handler
	cfg      *config.Config
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	store, err := newStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	auditLog, err := newAuditLog(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	recorder := audit.NewRecorder(auditLog)
	roster := cfg.Roster.Build()
	bus := eventbus.New()

	var pushClient *push.PahoClient
	var notifierPush push.Client
	if cfg.Push.Broker != "" {
		pushClient, err = push.NewPahoClient(cfg.Push)
		if err != nil {
			return nil, fmt.Errorf("push client: %w", err)
		}
		notifierPush = pushClient
	}
	notifier := notify.NewDispatcher(store, notifierPush, recorder, logger.New("notify"))

	engine, err := dispatch.NewOfferEngine(store, roster, recorder, bus, logger.New("offer-engine"), cfg.Dispatch.OfferTTL())
	if err != nil {
		return nil, fmt.Errorf("offer engine: %w", err)
	}
	orch, err := dispatch.NewAutoDispatcher(engine, notifier, recorder, bus, logger.New("auto-dispatch"), cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("auto dispatcher: %w", err)
	}
	acceptor, err := dispatch.NewAcceptor(store, recorder, bus, logger.New("acceptor"))
	if err != nil {
		return nil, fmt.Errorf("acceptor: %w", err)
	}
	sweeper, err := dispatch.NewSweeper(store, orch, recorder, bus, logger.New("sweeper"))
	if err != nil {
		return nil, fmt.Errorf("sweeper: %w", err)
	}

	var sink coremetrics.Sink
	if cfg.Metrics.InfluxEnabled {
		sink = metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
	}

	server := api.New(store, roster, orch, acceptor, dispatch.NewScorer(), recorder, cfg.Auth, logger.New("api"))

	return &Service{
		Orchestrator: orch,
		Acceptor:     acceptor,
		Sweeper:      sweeper,
		Store:        store,
		Roster:       roster,
		auditLog:     auditLog,
		pushc:        pushClient,
		bus:          bus,
		sink:         sink,
		router:       server.Router(),
		cfg:          cfg,
		log:          logg,
	}, nil
}

func newStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLiteStore(cfg.Path)
	}
}

func newAuditLog(cfg config.AuditConfig) (audit.Log, error) {
	switch cfg.Backend {
	case "memory":
		return audit.NewMemoryLog(), nil
	default:
		return audit.NewSQLiteLog(cfg.Path)
	}
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Sweeper.Run(ctx)
	if s.sink != nil {
		metrics.StartEventCollector(ctx, s.bus, s.sink)
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.pushc != nil {
		s.pushc.Close()
	}
	if err := s.auditLog.Close(); err != nil {
		return err
	}
	return s.Store.Close()
}
