package cmd

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"ferro.is/voxic/internal/provision"
)

// RunDiff shows a unified diff between a backup version and the
// current managed file.
func RunDiff(confPath string, version int) error {
	backups := provision.NewBackupManager(confPath, "", 0)

	old, err := backups.GetBackupContent(version)
	if err != nil {
		return err
	}
	current, err := os.ReadFile(confPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", confPath, err)
	}

	if string(old) == string(current) {
		Printer.Printf("No differences between backup %d and current\n", version)
		return nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(string(current)),
		FromFile: fmt.Sprintf("backup %d", version),
		ToFile:   "current",
		Context:  3,
	})
	if err != nil {
		return err
	}
	fmt.Print(diff)
	return nil
}
