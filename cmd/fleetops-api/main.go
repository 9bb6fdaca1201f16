// README: Entry point; loads config, opens the platform session, serves the operator API and runs the monitor.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fleetops/internal/app"
	"fleetops/internal/config"
	httptransport "fleetops/internal/http"
	"fleetops/internal/infra"
	"fleetops/internal/logger"
	"fleetops/internal/modules/notify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fleetops-api:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, "fleetops-api")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if logger.ParseLevel(cfg.Log.Level) != zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fbApp *firebase.App
	if cfg.Firebase.ProjectID != "" {
		if fbApp, err = infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile); err != nil {
			return fmt.Errorf("firebase init: %w", err)
		}
	}
	verifier, err := newVerifier(ctx, fbApp, cfg.APIToken)
	if err != nil {
		return err
	}

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if acct, err := rt.Current().Client.VerifyConnection(ctx); err != nil {
		log.Warn("platform token check failed; rotate it through PUT /api/session/token", zap.Error(err))
	} else {
		log.Info("platform connected", zap.String("account", acct.Name), zap.String("scope", acct.Scope))
	}

	if len(cfg.Monitor.DriverIDs) > 0 {
		monitor := rt.Monitor(cfg.Monitor)
		if fbApp != nil && cfg.Notify.Topic != "" {
			n, err := notify.NewFCM(ctx, fbApp, cfg.Notify.Topic, log.Named("notify"))
			if err != nil {
				return err
			}
			monitor.SetNotifier(n)
		}
		go monitor.Run(ctx)
	}

	server := httptransport.NewServer(httptransport.ServerDeps{
		Addr:     cfg.HTTP.Addr,
		Session:  rt.Session,
		Verifier: verifier,
		Log:      log.Named("http"),
	})
	return server.Run(ctx)
}

// newVerifier prefers Firebase ID tokens and falls back to the shared API token.
func newVerifier(ctx context.Context, fbApp *firebase.App, apiToken string) (infra.TokenVerifier, error) {
	if fbApp != nil {
		return infra.NewFirebaseVerifier(ctx, fbApp)
	}
	if apiToken != "" {
		return infra.NewStaticVerifier(apiToken, "static"), nil
	}
	return nil, errors.New("FLEETOPS_FIREBASE_PROJECT_ID or FLEETOPS_API_TOKEN is required")
}
