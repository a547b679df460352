package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ferro.is/voxic/internal/clock"
)

// BackupManager handles versioned backups of the managed pjsip file.
type BackupManager struct {
	confPath   string
	backupDir  string
	maxBackups int
}

// BackupInfo contains metadata about a backup.
type BackupInfo struct {
	Version     int       `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	IsAuto      bool      `json:"is_auto"` // Auto-backup vs manual
	Pinned      bool      `json:"pinned"`  // Pinned backups are never auto-pruned
}

// NewBackupManager creates a backup manager for the given file. An
// empty backupDir defaults to a backups/ directory next to the file.
func NewBackupManager(confPath, backupDir string, maxBackups int) *BackupManager {
	if maxBackups <= 0 {
		maxBackups = 20
	}
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(confPath), "backups")
	}
	return &BackupManager{
		confPath:   confPath,
		backupDir:  backupDir,
		maxBackups: maxBackups,
	}
}

func (b *BackupManager) ensureBackupDir() error {
	return os.MkdirAll(b.backupDir, 0755)
}

// CreateBackup creates a new versioned backup of the current file.
func (b *BackupManager) CreateBackup(description string, isAuto bool) (*BackupInfo, error) {
	if err := b.ensureBackupDir(); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := os.ReadFile(b.confPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	backups, _ := b.ListBackups()
	version := 1
	if len(backups) > 0 {
		version = backups[0].Version + 1
	}

	timestamp := clock.Now()
	filename := fmt.Sprintf("pjsip.%d.%s.conf", version, timestamp.Format("20060102-150405"))
	backupPath := filepath.Join(b.backupDir, filename)

	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	info := &BackupInfo{
		Version:     version,
		Timestamp:   timestamp,
		Description: description,
		Path:        backupPath,
		Size:        int64(len(data)),
		IsAuto:      isAuto,
	}

	metaPath := backupPath + ".meta.json"
	metaData, _ := json.MarshalIndent(info, "", "  ")
	os.WriteFile(metaPath, metaData, 0644)

	b.pruneOldBackups()

	return info, nil
}

// ListBackups returns all backups sorted by version (newest first).
func (b *BackupManager) ListBackups() ([]BackupInfo, error) {
	if err := b.ensureBackupDir(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(b.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".conf") {
			continue
		}

		backupPath := filepath.Join(b.backupDir, entry.Name())
		metaPath := backupPath + ".meta.json"

		var info BackupInfo

		if metaData, err := os.ReadFile(metaPath); err == nil {
			json.Unmarshal(metaData, &info)
		}

		// Fill in missing info from the file itself
		if info.Path == "" {
			info.Path = backupPath
		}
		if fileInfo, err := entry.Info(); err == nil {
			if info.Timestamp.IsZero() {
				info.Timestamp = fileInfo.ModTime()
			}
			if info.Size == 0 {
				info.Size = fileInfo.Size()
			}
		}
		if info.Version == 0 {
			var v int
			fmt.Sscanf(entry.Name(), "pjsip.%d.", &v)
			info.Version = v
		}

		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Version > backups[j].Version
	})

	return backups, nil
}

// GetBackup returns a specific backup by version.
func (b *BackupManager) GetBackup(version int) (*BackupInfo, error) {
	backups, err := b.ListBackups()
	if err != nil {
		return nil, err
	}
	for _, backup := range backups {
		if backup.Version == version {
			return &backup, nil
		}
	}
	return nil, fmt.Errorf("backup version %d not found", version)
}

// GetBackupContent returns the content of a specific backup.
func (b *BackupManager) GetBackupContent(version int) ([]byte, error) {
	backup, err := b.GetBackup(version)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(backup.Path)
}

// RestoreBackup writes a backup version back over the managed file,
// taking an auto-backup of the current content first.
func (b *BackupManager) RestoreBackup(version int) error {
	content, err := b.GetBackupContent(version)
	if err != nil {
		return err
	}

	b.CreateBackup("Auto-backup before restore", true)

	if err := os.WriteFile(b.confPath, content, 0644); err != nil {
		return fmt.Errorf("failed to restore config: %w", err)
	}
	return nil
}

// GetLatestBackup returns the most recent backup.
func (b *BackupManager) GetLatestBackup() (*BackupInfo, error) {
	backups, err := b.ListBackups()
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, fmt.Errorf("no backups found")
	}
	return &backups[0], nil
}

// pruneOldBackups removes auto-backups beyond the maxBackups limit.
// Pinned (user-initiated) backups are never pruned.
func (b *BackupManager) pruneOldBackups() {
	backups, err := b.ListBackups()
	if err != nil {
		return
	}

	var unpinned []BackupInfo
	for _, backup := range backups {
		if !backup.Pinned {
			unpinned = append(unpinned, backup)
		}
	}

	if len(unpinned) <= b.maxBackups {
		return
	}

	for i := b.maxBackups; i < len(unpinned); i++ {
		os.Remove(unpinned[i].Path)
		os.Remove(unpinned[i].Path + ".meta.json")
	}
}

// DeleteBackup removes a specific backup.
func (b *BackupManager) DeleteBackup(version int) error {
	backup, err := b.GetBackup(version)
	if err != nil {
		return err
	}
	os.Remove(backup.Path)
	os.Remove(backup.Path + ".meta.json")
	return nil
}

// CreatePinnedBackup creates a user-initiated backup that won't be
// auto-pruned.
func (b *BackupManager) CreatePinnedBackup(description string) (*BackupInfo, error) {
	backup, err := b.CreateBackup(description, false)
	if err != nil {
		return nil, err
	}

	backup.Pinned = true

	metaPath := backup.Path + ".meta.json"
	metaData, _ := json.MarshalIndent(backup, "", "  ")
	if err := os.WriteFile(metaPath, metaData, 0644); err != nil {
		return nil, fmt.Errorf("failed to update backup metadata: %w", err)
	}
	return backup, nil
}

// PinBackup marks a backup as pinned (won't be auto-pruned).
func (b *BackupManager) PinBackup(version int) error {
	return b.setBackupPinned(version, true)
}

// UnpinBackup removes the pinned status from a backup.
func (b *BackupManager) UnpinBackup(version int) error {
	return b.setBackupPinned(version, false)
}

func (b *BackupManager) setBackupPinned(version int, pinned bool) error {
	backup, err := b.GetBackup(version)
	if err != nil {
		return err
	}

	backup.Pinned = pinned

	metaPath := backup.Path + ".meta.json"
	metaData, _ := json.MarshalIndent(backup, "", "  ")
	if err := os.WriteFile(metaPath, metaData, 0644); err != nil {
		return fmt.Errorf("failed to update backup metadata: %w", err)
	}
	return nil
}
