package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-wellbeing-backend/internal/http"
	"github.com/tbourn/go-wellbeing-backend/internal/sysutil"
)

const shutdownGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (webhooks, tasks and dashboards)",
		Long: `Start the HTTP server.

Examples:
  wellbeing serve
  wellbeing serve --addr :9000
  wellbeing serve --env-file .env.local`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}

func runServe(parent context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.cfg.RequireSecrets(); err != nil {
		return err
	}
	svc, err := a.services()
	if err != nil {
		return err
	}

	gin.SetMode(a.cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.cfg, svc)

	srv := &http.Server{
		Addr:              sysutil.FirstNonEmpty(addr, ":"+a.cfg.Port),
		Handler:           r,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// The scheduler must be stopped and joined before the deferred close
	// releases the database.
	schedCtx, stopSched := context.WithCancel(ctx)
	var sched sync.WaitGroup
	defer func() {
		stopSched()
		sched.Wait()
	}()
	if a.cfg.DailyPush.Enabled {
		sched.Add(1)
		go func() {
			defer sched.Done()
			_ = svc.Scheduler.Run(schedCtx)
		}()
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
