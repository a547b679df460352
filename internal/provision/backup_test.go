package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackups(t *testing.T, maxBackups int) (*BackupManager, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pjsip.conf")
	require.NoError(t, os.WriteFile(path, []byte("v0\n"), 0644))
	return NewBackupManager(path, "", maxBackups), path
}

func TestCreateAndListBackups(t *testing.T) {
	b, path := newTestBackups(t, 10)

	info, err := b.CreateBackup("before create 100", true)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Version)
	assert.True(t, info.IsAuto)
	assert.Equal(t, int64(3), info.Size)

	require.NoError(t, os.WriteFile(path, []byte("v1\n"), 0644))
	info2, err := b.CreateBackup("before update 100", true)
	require.NoError(t, err)
	assert.Equal(t, 2, info2.Version)

	backups, err := b.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	// Newest first.
	assert.Equal(t, 2, backups[0].Version)
	assert.Equal(t, "before update 100", backups[0].Description)

	content, err := b.GetBackupContent(1)
	require.NoError(t, err)
	assert.Equal(t, "v0\n", string(content))
}

func TestListSurvivesMissingMetadata(t *testing.T) {
	b, _ := newTestBackups(t, 10)

	info, err := b.CreateBackup("x", true)
	require.NoError(t, err)
	require.NoError(t, os.Remove(info.Path+".meta.json"))

	backups, err := b.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	// Version recovered from the filename.
	assert.Equal(t, 1, backups[0].Version)
	assert.NotZero(t, backups[0].Size)
}

func TestRestoreBackup(t *testing.T) {
	b, path := newTestBackups(t, 10)

	_, err := b.CreateBackup("checkpoint", false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("broken\n"), 0644))

	require.NoError(t, b.RestoreBackup(1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v0\n", string(data))

	// Restore checkpointed the broken content too.
	backups, err := b.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestPruneKeepsPinned(t *testing.T) {
	b, path := newTestBackups(t, 2)

	pinned, err := b.CreatePinnedBackup("keep me")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i), '\n'}, 0644))
		_, err := b.CreateBackup("auto", true)
		require.NoError(t, err)
	}

	backups, err := b.ListBackups()
	require.NoError(t, err)
	// 2 unpinned survivors plus the pinned one.
	require.Len(t, backups, 3)

	content, err := b.GetBackupContent(pinned.Version)
	require.NoError(t, err)
	assert.Equal(t, "v0\n", string(content))
}

func TestDeleteBackup(t *testing.T) {
	b, _ := newTestBackups(t, 10)

	info, err := b.CreateBackup("x", true)
	require.NoError(t, err)
	require.NoError(t, b.DeleteBackup(info.Version))

	_, err = b.GetBackup(info.Version)
	assert.Error(t, err)

	backups, err := b.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestLatestBackup(t *testing.T) {
	b, path := newTestBackups(t, 10)

	_, err := b.GetLatestBackup()
	assert.Error(t, err)

	_, err = b.CreateBackup("first", true)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("v1\n"), 0644))
	_, err = b.CreateBackup("second", true)
	require.NoError(t, err)

	latest, err := b.GetLatestBackup()
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "second", latest.Description)
}
