package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferro.is/voxic/internal/pjsip"
)

const seedConf = `; managed by ops, do not hand-edit below the transports
[transport-udp]
type=transport
protocol=udp
bind=0.0.0.0:5060
`

type reloadSpy struct {
	calls atomic.Int32
	err   error
}

func (r *reloadSpy) Reload(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

func newTestManager(t *testing.T) (*Manager, string, *reloadSpy) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pjsip.conf")
	spy := &reloadSpy{}
	m := New(Options{
		ConfPath:   path,
		BackupDir:  filepath.Join(dir, "backups"),
		MaxBackups: 5,
		LockWait:   2 * time.Second,
		Reloader:   spy,
	})
	return m, path, spy
}

func seed(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func str(s string) *string { return &s }

func mkRequest(id string) *pjsip.Request {
	return &pjsip.Request{
		ID:       id,
		Username: str(id),
		Password: str("hunter2hunter2"),
		Context:  str("internal"),
		Codecs:   []string{"ulaw", "g722"},
	}
}

func TestCreateOnMissingFile(t *testing.T) {
	m, path, spy := newTestManager(t)

	res, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)
	assert.Equal(t, "create", res.Action)
	assert.NotEmpty(t, res.OperationID)
	assert.Nil(t, res.Backup, "nothing to back up on first boot")
	assert.True(t, res.Reloaded)
	assert.Equal(t, int32(1), spy.calls.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[100]\n")
	assert.Contains(t, string(data), "[100-auth]\n")
	assert.Contains(t, string(data), "[100-aor]\n")
}

func TestCreatePreservesForeignSections(t *testing.T) {
	m, path, _ := newTestManager(t)
	seed(t, path, seedConf)

	_, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), seedConf),
		"operator content must survive byte for byte")
}

func TestCreateBacksUpExistingFile(t *testing.T) {
	m, path, _ := newTestManager(t)
	seed(t, path, seedConf)

	res, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)
	require.NotNil(t, res.Backup)

	content, err := m.Backups().GetBackupContent(res.Backup.Version)
	require.NoError(t, err)
	assert.Equal(t, seedConf, string(content), "backup holds pre-write content")
	assert.NotEmpty(t, res.Diff)
	assert.Contains(t, res.Diff, "+[100]")
}

func TestDuplicateCreateLeavesFileUntouched(t *testing.T) {
	m, path, spy := newTestManager(t)

	_, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	calls := spy.calls.Load()

	_, err = m.Create(context.Background(), mkRequest("100"))
	assert.True(t, errors.Is(err, pjsip.ErrDuplicate))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, calls, spy.calls.Load(), "no reload on a rejected operation")
}

func TestUpdateAndDelete(t *testing.T) {
	m, path, _ := newTestManager(t)

	_, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)

	res, err := m.Update(context.Background(), "100", &pjsip.Request{Context: str("sales")})
	require.NoError(t, err)
	require.NotNil(t, res.Endpoint)
	assert.Equal(t, "sales", *res.Endpoint.Core.Context)
	assert.Contains(t, res.Diff, "+context=sales")

	_, err = m.Delete(context.Background(), "100")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "[100]")

	_, err = m.Update(context.Background(), "100", &pjsip.Request{})
	assert.True(t, errors.Is(err, pjsip.ErrNotFound))
	_, err = m.Delete(context.Background(), "100")
	assert.True(t, errors.Is(err, pjsip.ErrNotFound))
}

func TestValidationRejectionBeforeAnyWrite(t *testing.T) {
	m, path, spy := newTestManager(t)

	req := mkRequest("100")
	req.Password = str("short")
	_, err := m.Create(context.Background(), req)

	var verr *pjsip.ValidationError
	require.ErrorAs(t, err, &verr)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "rejected create must not touch the file")
	assert.Equal(t, int32(0), spy.calls.Load())
}

func TestBusyTimeout(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.lockWait = 20 * time.Millisecond

	// Occupy the lock from the outside.
	m.sem <- struct{}{}
	defer func() { <-m.sem }()

	_, err := m.Create(context.Background(), mkRequest("100"))
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestConcurrentCreatesBothLand(t *testing.T) {
	m, path, _ := newTestManager(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"100", "200"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = m.Create(context.Background(), mkRequest(id))
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[100]\n")
	assert.Contains(t, string(data), "[200]\n")
}

func TestIntegrityFailureRestoresPrevious(t *testing.T) {
	m, path, spy := newTestManager(t)
	seed(t, path, seedConf)

	// The write lands corrupted.
	m.writeFn = func(name string, data []byte, perm os.FileMode) error {
		return os.WriteFile(name, []byte("garbage\n"), perm)
	}

	_, err := m.Create(context.Background(), mkRequest("100"))
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.Restored)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, seedConf, string(data))
	assert.Equal(t, int32(0), spy.calls.Load(), "no reload of a bad file")
}

func TestIntegrityFailureOnFirstWriteRemovesFile(t *testing.T) {
	m, path, _ := newTestManager(t)
	m.writeFn = func(name string, data []byte, perm os.FileMode) error {
		return os.WriteFile(name, []byte("garbage\n"), perm)
	}

	_, err := m.Create(context.Background(), mkRequest("100"))
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPostWriteCheckCatchesForeignSection(t *testing.T) {
	m, path, _ := newTestManager(t)
	seed(t, path, seedConf)

	res, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)

	// A rendering bug that splices an extra section into the file
	// produces on-disk bytes identical to the rendered document, so
	// only the re-parse can see it.
	correct, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := string(correct) + "[evil]\ntype=endpoint\ncontext=public\n"
	seed(t, path, tampered)

	err = m.checkWritten("update", "100", tampered, []byte(seedConf), res.Endpoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evil")
}

func TestPostWriteCheckCatchesMangledValues(t *testing.T) {
	m, path, _ := newTestManager(t)
	seed(t, path, seedConf)

	res, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	mangled := strings.Replace(string(written), "context=internal", "context=public", 1)
	require.NotEqual(t, string(written), mangled)
	seed(t, path, mangled)

	err = m.checkWritten("update", "100", mangled, []byte(seedConf), res.Endpoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100")
}

func TestPostWriteCheckCatchesLeftoverDelete(t *testing.T) {
	m, path, _ := newTestManager(t)
	seed(t, path, seedConf)

	_, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)

	still, err := os.ReadFile(path)
	require.NoError(t, err)

	err = m.checkWritten("delete", "100", string(still), []byte(seedConf), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still present")
}

func TestReloadFailureIsNonFatal(t *testing.T) {
	m, path, spy := newTestManager(t)
	spy.err = errors.New("asterisk not running")

	res, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err, "a failed reload must not fail the write")
	assert.False(t, res.Reloaded)
	assert.Contains(t, res.ReloadError, "asterisk not running")

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "[100]\n")
}

func TestGetListRaw(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)
	_, err = m.Create(context.Background(), mkRequest("200"))
	require.NoError(t, err)

	e, err := m.Get("100")
	require.NoError(t, err)
	assert.Equal(t, "100", *e.Auth.Username)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	raw, err := m.Raw()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[200-aor]")

	_, err = m.Get("999")
	assert.True(t, errors.Is(err, pjsip.ErrNotFound))
}

func TestAvailable(t *testing.T) {
	m, _, _ := newTestManager(t)

	ok, err := m.Available("100")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)

	ok, err = m.Available("100")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Available("bad id!")
	var verr *pjsip.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRestoreBringsBackOldContent(t *testing.T) {
	m, path, spy := newTestManager(t)
	seed(t, path, seedConf)

	res, err := m.Create(context.Background(), mkRequest("100"))
	require.NoError(t, err)
	require.NotNil(t, res.Backup)

	restored, err := m.Restore(context.Background(), res.Backup.Version)
	require.NoError(t, err)
	assert.Equal(t, "restore", restored.Action)
	assert.NotEmpty(t, restored.Diff)
	assert.GreaterOrEqual(t, spy.calls.Load(), int32(2))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, seedConf, string(data))
}
