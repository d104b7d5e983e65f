package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/services"
	"fintrack/internal/telemetry"
)

// Version is set at build time.
var Version = "dev"

// app is the state shared by every command of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer
	clock  func() time.Time
	outMu  sync.Mutex

	cfg     *config.Config
	logger  *log.Logger
	backend *backend.Result
	svc     *services.FinanceService
}

// open loads configuration, opens the backend and builds the service. The
// scheduled reset check and the cache repair run before any command.
func (a *app) open(ctx context.Context) error {
	LoadEnvFile()

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := SetupLogger(cfg, a.errOut)
	if err != nil {
		return err
	}
	a.logger = logger

	if err := telemetry.Init(telemetry.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     "fintrack@" + Version,
	}); err != nil {
		logger.Warn("Sentry disabled", log.FieldError, err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	a.backend = res

	sinks := notify.Multi{notify.NewLogSink(logger, cfg.Currency)}
	if res.Publisher != nil {
		sinks = append(sinks, res.Publisher)
	}

	opts := []services.Option{
		services.WithLocation(loc),
		services.WithSink(sinks),
		services.WithLogger(logger),
	}
	if a.clock != nil {
		opts = append(opts, services.WithClock(a.clock))
	}
	svc, err := services.NewFinanceService(ctx, res.Store, opts...)
	if err != nil {
		return err
	}
	if err := svc.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	a.svc = svc
	return nil
}

func (a *app) close() error {
	telemetry.Flush(2 * time.Second)
	if a.backend == nil {
		return nil
	}
	err := a.backend.Cleanup()
	a.backend = nil
	return err
}

func (a *app) render() renderer {
	currency := config.Defaults().Currency
	if a.cfg != nil {
		currency = a.cfg.Currency
	}
	return renderer{w: a.out, mu: &a.outMu, st: newStyles(), currency: currency}
}
