package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

const shutdownTimeout = 30 * time.Second

// resetLoop checks for a due budget reset every interval until ctx is done.
// Failed checks are logged and retried on the next tick.
func resetLoop(ctx context.Context, a *app, interval time.Duration, onReset func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reset, err := a.svc.CheckAndReset(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "Scheduled reset check failed",
					log.FieldOperation, log.OpReset, log.FieldError, err)
				continue
			}
			if reset && onReset != nil {
				onReset()
			}
		}
	}
}

// countdownLoop prints the time left until the next reset now and every
// interval. It never triggers a reset itself.
func countdownLoop(ctx context.Context, a *app, interval time.Duration) error {
	r := a.render()
	show := func() {
		if countdown, ok := a.svc.Countdown(); ok {
			r.field("Next reset in", countdown)
		} else {
			r.noBudget()
		}
	}

	show()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			show()
		}
	}
}

func runWatch(ctx context.Context, a *app) error {
	g, ctx := errgroup.WithContext(ctx)
	r := a.render()
	g.Go(func() error {
		return countdownLoop(ctx, a, a.cfg.CountdownInterval)
	})
	g.Go(func() error {
		return resetLoop(ctx, a, a.cfg.ResetCheckInterval, func() {
			r.line("%s", r.st.title.Render("Budget reset for the new period"))
		})
	})
	return g.Wait()
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the reset countdown and apply resets as periods roll over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := GracefulShutdown(cmd.Context(), a.logger)
			defer cancel()
			return runWatch(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app, addr string) error {
	srv := apphttp.NewServer(addr, a.svc, apphttp.WithLogger(a.logger))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting fintrack server", "addr", addr, "backend", a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		a.logger.Info("Server stopped gracefully")
		return nil
	})
	g.Go(func() error {
		return resetLoop(ctx, a, a.cfg.ResetCheckInterval, nil)
	})
	return g.Wait()
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := GracefulShutdown(cmd.Context(), a.logger)
			defer cancel()
			return runServe(ctx, a, ":"+a.cfg.Port)
		},
	}
}

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print budget notifications published to AMQP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend.Publisher == nil {
				return fmt.Errorf("AMQP is not available; set AMQP_URL to a reachable broker")
			}
			ctx, cancel := GracefulShutdown(cmd.Context(), a.logger)
			defer cancel()

			r := a.render()
			err := a.backend.Publisher.ConsumeEvents(ctx, func(msg *amqp.EventMessage) error {
				r.event(msg.Event)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
