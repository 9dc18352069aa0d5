package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/psantana5/relaunch/internal/report"
	"github.com/psantana5/relaunch/internal/restart"
	"github.com/psantana5/relaunch/internal/server"
	"github.com/psantana5/relaunch/pkg/auth"
	"github.com/psantana5/relaunch/pkg/logging"
	"github.com/psantana5/relaunch/pkg/ratelimit"
	"github.com/psantana5/relaunch/pkg/relaunch"
	"github.com/psantana5/relaunch/pkg/retry"
	"github.com/psantana5/relaunch/pkg/shutdown"
	"github.com/psantana5/relaunch/pkg/tlsutil"
	"github.com/psantana5/relaunch/pkg/tracing"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the restart host",
	Long: `Runs an HTTP server that restarts this program on POST /restart or SIGHUP.
Once a new instance has been spawned the current one drains and exits,
unless server.exit_after_restart is false.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log := logger
	if cfg.Log.File {
		fl, err := logging.NewFileLogger("relaunchd", "serve", logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
		if err != nil {
			return err
		}
		log = fl
	}

	mgr := shutdown.New(cfg.Server.ShutdownTimeout, log)
	mgr.Register("logger", shutdown.CloseResource(log))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder, err := report.NewRecorder(reg, log)
	if err != nil {
		return err
	}

	tracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
	}, log)
	if err != nil {
		return err
	}
	mgr.Register("tracer", tracer.Shutdown)

	opts := append(cfg.RelaunchOptions(),
		relaunch.WithObserver(recorder),
		relaunch.WithLogger(log.WithField("component", "relaunch")),
	)

	ctrl, err := restart.New(restart.Config{
		Relauncher:    relaunch.New(opts...),
		Recorder:      recorder,
		Tracer:        tracer,
		Logger:        log,
		Shutdown:      mgr,
		ExitAfter:     cfg.Server.ExitAfterRestart,
		ConfirmWithin: cfg.Relaunch.ConfirmWithin,
	})
	if err != nil {
		return err
	}

	verifier, err := auth.NewTokenVerifier(cfg.Server.RestartTokenHash)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("server.restart_token_hash is empty; POST /restart is unauthenticated")
	}
	limiter := ratelimit.NewLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	var tlsCfg *tls.Config
	if cfg.Server.TLSEnabled() {
		tlsCfg, err = tlsutil.ServerConfig(cfg.Server.TLSCert, cfg.Server.TLSKey, cfg.Server.TLSClientCA)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Handler: server.New(server.Config{
			Restarter: ctrl,
			Failures:  recorder.Failures(),
			Gatherer:  reg,
			Verifier:  verifier,
			Limiter:   limiter,
			Tracer:    tracer,
			Logger:    log,
			Version:   Version,
		}).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The instance we replaced may still be draining on the same port.
	var ln net.Listener
	err = retry.Do(ctx, retry.BindConfig(cfg.Server.BindRetries), func() error {
		l, lerr := net.Listen("tcp", cfg.Server.Addr)
		if lerr != nil {
			log.Debug("Listen failed", map[string]interface{}{"addr": cfg.Server.Addr, "error": lerr})
			return lerr
		}
		ln = l
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	mgr.Register("http server", shutdown.StopHTTPServer(srv))

	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", map[string]interface{}{"error": err})
			mgr.Trigger("http server failed")
		}
	}()
	go ctrl.HandleSignals(ctx)
	go cleanupLimiters(ctx, limiter)

	log.Info("relaunchd serving", map[string]interface{}{
		"addr":               ln.Addr().String(),
		"tls":                cfg.Server.TLSEnabled(),
		"exit_after_restart": cfg.Server.ExitAfterRestart,
		"args_policy":        cfg.Relaunch.Args,
	})

	if err := mgr.Wait(context.Background()); err != nil {
		return err
	}
	cancel()
	log.Info("Shutting down", map[string]interface{}{"reason": mgr.Reason()})
	return mgr.Shutdown()
}

func cleanupLimiters(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.CleanupOldLimiters(10 * time.Minute)
		}
	}
}
