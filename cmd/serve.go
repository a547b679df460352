package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ferro.is/voxic/internal/api"
	"ferro.is/voxic/internal/audit"
	"ferro.is/voxic/internal/config"
	"ferro.is/voxic/internal/logging"
	"ferro.is/voxic/internal/provision"
	"ferro.is/voxic/internal/validation"
)

// RunServe starts the provisioning daemon and blocks until SIGINT or
// SIGTERM.
func RunServe(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if err := validation.ValidateListenAddr(cfg.Listen); err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	logging.SetDefault(logger)

	store, err := audit.NewStore(cfg.AuditDB, cfg.AuditRetentionDays)
	if err != nil {
		return err
	}
	defer store.Close()
	if removed, err := store.Prune(); err == nil && removed > 0 {
		logger.Info("pruned audit trail", "removed", removed)
	}

	manager := provision.New(provision.Options{
		ConfPath:      cfg.PJSIPConf,
		BackupDir:     cfg.BackupDir,
		MaxBackups:    cfg.MaxBackups,
		LockWait:      cfg.LockWaitDuration(),
		ReloadTimeout: cfg.ReloadTimeoutDuration(),
		Reloader:      provision.NewCommandReloader(cfg.ReloadCommand),
		Logger:        logger.WithComponent("provision"),
	})

	server := api.NewServer(api.ServerOptions{
		Config:  cfg,
		Manager: manager,
		Audit:   store,
		Logger:  logger.WithComponent("api"),
	})

	if len(cfg.APIKeys) == 0 {
		logger.Warn("no api_key blocks configured, all provisioning routes will reject")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "config", configFile, "pjsip_conf", cfg.PJSIPConf)
	err = server.ListenAndServe(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}

// interruptible lets callers outside serve use the same signal set.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
