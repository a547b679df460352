package cmd

import (
	"ferro.is/voxic/internal/config"
	"ferro.is/voxic/internal/provision"
)

// RunReload asks Asterisk to re-read the managed file without
// changing it.
func RunReload(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}

	manager := provision.New(provision.Options{
		ConfPath:      cfg.PJSIPConf,
		ReloadTimeout: cfg.ReloadTimeoutDuration(),
		Reloader:      provision.NewCommandReloader(cfg.ReloadCommand),
	})

	ctx, stop := interruptible()
	defer stop()

	if err := manager.Reload(ctx); err != nil {
		return err
	}
	Printer.Println("Reload OK")
	return nil
}
