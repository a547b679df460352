package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"ferro.is/voxic/internal/config"
	"ferro.is/voxic/internal/provision"
)

func backupManager(configFile string) (*provision.BackupManager, *config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, nil, err
	}
	return provision.NewBackupManager(cfg.PJSIPConf, cfg.BackupDir, cfg.MaxBackups), cfg, nil
}

// RunBackupCreate takes a pinned backup of the managed file.
func RunBackupCreate(configFile, description string) error {
	b, _, err := backupManager(configFile)
	if err != nil {
		return err
	}
	if description == "" {
		description = "manual backup"
	}
	info, err := b.CreatePinnedBackup(description)
	if err != nil {
		return err
	}
	Printer.Printf("Created backup %d (%d bytes): %s\n", info.Version, info.Size, info.Path)
	return nil
}

// RunBackupList prints the retained backups, newest first.
func RunBackupList(configFile string) error {
	b, _, err := backupManager(configFile)
	if err != nil {
		return err
	}
	backups, err := b.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		Printer.Println("No backups")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tTIMESTAMP\tSIZE\tPINNED\tDESCRIPTION")
	for _, info := range backups {
		pinned := "-"
		if info.Pinned {
			pinned = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			info.Version, info.Timestamp.Format("2006-01-02 15:04:05"), info.Size, pinned, info.Description)
	}
	return w.Flush()
}

// RunBackupRestore writes a backup version back over the managed file
// and asks Asterisk to reload it.
func RunBackupRestore(configFile string, version int) error {
	_, cfg, err := backupManager(configFile)
	if err != nil {
		return err
	}

	manager := provision.New(provision.Options{
		ConfPath:      cfg.PJSIPConf,
		BackupDir:     cfg.BackupDir,
		MaxBackups:    cfg.MaxBackups,
		LockWait:      cfg.LockWaitDuration(),
		ReloadTimeout: cfg.ReloadTimeoutDuration(),
		Reloader:      provision.NewCommandReloader(cfg.ReloadCommand),
	})

	ctx, stop := interruptible()
	defer stop()

	res, err := manager.Restore(ctx, version)
	if err != nil {
		return err
	}
	Printer.Printf("Restored backup %d\n", version)
	if res.ReloadError != "" {
		Printer.Printf("Warning: reload failed: %s\n", res.ReloadError)
	}
	return nil
}

// RunBackupPin toggles the pinned flag on a backup.
func RunBackupPin(configFile string, version int, pinned bool) error {
	b, _, err := backupManager(configFile)
	if err != nil {
		return err
	}
	if pinned {
		if err := b.PinBackup(version); err != nil {
			return err
		}
		Printer.Printf("Pinned backup %d\n", version)
		return nil
	}
	if err := b.UnpinBackup(version); err != nil {
		return err
	}
	Printer.Printf("Unpinned backup %d\n", version)
	return nil
}
