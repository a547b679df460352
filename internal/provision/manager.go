// Package provision serializes every mutation of the managed
// pjsip.conf behind a single pipeline: load, mutate, backup, atomic
// write, verify, reload. The file itself is the source of truth; the
// daemon keeps no shadow state.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"ferro.is/voxic/internal/clock"
	"ferro.is/voxic/internal/confdoc"
	"ferro.is/voxic/internal/logging"
	"ferro.is/voxic/internal/metrics"
	"ferro.is/voxic/internal/pjsip"
)

const (
	defaultLockWait      = 5 * time.Second
	defaultReloadTimeout = 10 * time.Second
)

// Options configures a Manager.
type Options struct {
	ConfPath      string
	BackupDir     string        // empty: backups/ next to ConfPath
	MaxBackups    int           // <=0: default retention
	LockWait      time.Duration // how long a writer waits for the lock
	ReloadTimeout time.Duration
	Reloader      Reloader // nil: asterisk CLI
	Logger        *logging.Logger
}

// Manager owns the managed file. All writers go through it.
type Manager struct {
	path          string
	backups       *BackupManager
	reloader      Reloader
	lockWait      time.Duration
	reloadTimeout time.Duration
	sem           chan struct{}
	log           *logging.Logger
	reg           *metrics.Registry

	// writeFn is swapped out by tests that need a write to land
	// differently than requested.
	writeFn func(name string, data []byte, perm os.FileMode) error
}

// Result describes a completed mutation.
type Result struct {
	OperationID string          `json:"operation_id"`
	Action      string          `json:"action"`
	EndpointID  string          `json:"endpoint_id,omitempty"`
	Endpoint    *pjsip.Endpoint `json:"endpoint,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Diff        string          `json:"diff,omitempty"`
	Backup      *BackupInfo     `json:"backup,omitempty"`
	Reloaded    bool            `json:"reloaded"`
	ReloadError string          `json:"reload_error,omitempty"`
}

func New(opts Options) *Manager {
	if opts.LockWait <= 0 {
		opts.LockWait = defaultLockWait
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = defaultReloadTimeout
	}
	if opts.Reloader == nil {
		opts.Reloader = NewCommandReloader(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("provision")
	}
	return &Manager{
		path:          opts.ConfPath,
		backups:       NewBackupManager(opts.ConfPath, opts.BackupDir, opts.MaxBackups),
		reloader:      opts.Reloader,
		lockWait:      opts.LockWait,
		reloadTimeout: opts.ReloadTimeout,
		sem:           make(chan struct{}, 1),
		log:           opts.Logger,
		reg:           metrics.Get(),
		writeFn:       os.WriteFile,
	}
}

// Backups exposes the backup store for list/restore surfaces.
func (m *Manager) Backups() *BackupManager { return m.backups }

// Create provisions a new endpoint.
func (m *Manager) Create(ctx context.Context, req *pjsip.Request) (*Result, error) {
	e := req.Endpoint()
	return m.apply(ctx, "create", e.ID, func(d *confdoc.Document) (*confdoc.Document, *pjsip.Endpoint, []string, error) {
		out, warnings, err := pjsip.ApplyCreate(d, e)
		return out, e, warnings, err
	})
}

// Update merges a patch over an existing endpoint.
func (m *Manager) Update(ctx context.Context, id string, req *pjsip.Request) (*Result, error) {
	patch := req.Endpoint()
	return m.apply(ctx, "update", id, func(d *confdoc.Document) (*confdoc.Document, *pjsip.Endpoint, []string, error) {
		return pjsip.ApplyUpdate(d, id, patch)
	})
}

// Delete removes an endpoint and its auth/aor sections.
func (m *Manager) Delete(ctx context.Context, id string) (*Result, error) {
	return m.apply(ctx, "delete", id, func(d *confdoc.Document) (*confdoc.Document, *pjsip.Endpoint, []string, error) {
		out, err := pjsip.ApplyDelete(d, id)
		return out, nil, nil, err
	})
}

// Get reads one endpoint from the file.
func (m *Manager) Get(id string) (*pjsip.Endpoint, error) {
	doc, err := m.loadDocument()
	if err != nil {
		return nil, err
	}
	return pjsip.Get(doc, id)
}

// List reads every endpoint from the file, in file order.
func (m *Manager) List() ([]*pjsip.Endpoint, error) {
	doc, err := m.loadDocument()
	if err != nil {
		return nil, err
	}
	return pjsip.List(doc), nil
}

// Raw returns the managed file exactly as it is on disk.
func (m *Manager) Raw() ([]byte, error) {
	data, _, err := m.readFile()
	return data, err
}

// Available reports whether an id is valid and not yet taken.
func (m *Manager) Available(id string) (bool, error) {
	if violations := pjsip.Validate(&pjsip.Endpoint{ID: id}); pjsip.Fatal(violations) {
		return false, &pjsip.ValidationError{Violations: violations}
	}
	doc, err := m.loadDocument()
	if err != nil {
		return false, err
	}
	return len(doc.FindEntitySections(id)) == 0, nil
}

// Reload asks Asterisk to re-read the file without changing it.
func (m *Manager) Reload(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, m.reloadTimeout)
	defer cancel()
	if err := m.reloader.Reload(rctx); err != nil {
		m.reg.Reloads.WithLabelValues("failure").Inc()
		return &StageError{Stage: StageReload, Err: err}
	}
	m.reg.Reloads.WithLabelValues("success").Inc()
	return nil
}

// Restore writes a backup version back and reloads.
func (m *Manager) Restore(ctx context.Context, version int) (*Result, error) {
	res := &Result{OperationID: uuid.NewString(), Action: "restore"}
	log := m.log.WithFields(map[string]any{"op": res.OperationID, "version": version})

	if err := m.acquire(ctx); err != nil {
		return nil, err
	}

	before, _, err := m.readFile()
	if err != nil {
		m.release()
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	if err := m.backups.RestoreBackup(version); err != nil {
		m.release()
		return nil, err
	}
	after, _, err := m.readFile()
	m.release()
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}

	res.Diff = unifiedDiff(string(before), string(after))
	m.finishReload(log, res)
	log.Info("backup restored", "version", version)
	return res, nil
}

// apply runs one mutation through the pipeline. The in-process lock
// and the advisory file lock are released as soon as the rename lands;
// the reload happens outside both.
func (m *Manager) apply(ctx context.Context, action, id string, mutate func(*confdoc.Document) (*confdoc.Document, *pjsip.Endpoint, []string, error)) (*Result, error) {
	start := clock.Now()
	res := &Result{OperationID: uuid.NewString(), Action: action, EndpointID: id}
	log := m.log.WithFields(map[string]any{"op": res.OperationID, "action": action, "endpoint": id})

	outcome := "error"
	defer func() {
		m.reg.Operations.WithLabelValues(action, outcome).Inc()
		m.reg.OperationTime.WithLabelValues(action).Observe(clock.Since(start).Seconds())
	}()

	if err := m.acquire(ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			outcome = "busy"
		}
		return nil, err
	}
	held := true
	release := func() {
		if held {
			m.release()
			held = false
		}
	}
	defer release()

	flk, err := m.lockAdvisory()
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	unlock := func() {
		if flk != nil {
			unlockFile(flk)
			flk.Close()
			flk = nil
		}
	}
	defer unlock()

	before, existed, err := m.readFile()
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	doc := confdoc.Parse(string(before))

	newDoc, e, warnings, err := mutate(doc)
	if err != nil {
		outcome = mutateOutcome(err)
		return nil, err
	}
	after := newDoc.Render()
	res.Endpoint = e
	res.Warnings = warnings

	if existed {
		backup, err := m.backups.CreateBackup(fmt.Sprintf("auto before %s %s", action, id), true)
		if err != nil {
			return nil, &StageError{Stage: StageBackup, Err: err}
		}
		res.Backup = backup
	}

	if err := m.writeAtomic(after); err != nil {
		return nil, &StageError{Stage: StageWrite, Err: err}
	}

	if err := m.verify(action, id, after, before, existed, e); err != nil {
		outcome = "integrity"
		log.Error("post-write verification failed", "error", err)
		return nil, err
	}

	m.reg.Endpoints.Set(float64(len(pjsip.List(newDoc))))
	res.Diff = unifiedDiff(string(before), after)

	// The write has landed; nothing below needs the locks.
	unlock()
	release()

	m.finishReload(log, res)

	outcome = "ok"
	log.Info("operation applied", "reloaded", res.Reloaded, "warnings", len(res.Warnings))
	return res, nil
}

func (m *Manager) acquire(ctx context.Context) error {
	start := clock.Now()
	wait := time.NewTimer(m.lockWait)
	defer wait.Stop()

	select {
	case m.sem <- struct{}{}:
		m.reg.LockWait.Observe(clock.Since(start).Seconds())
		return nil
	case <-wait.C:
		m.reg.LockTimeouts.Inc()
		return fmt.Errorf("%w: waited %s", ErrBusy, m.lockWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() { <-m.sem }

// lockAdvisory takes the cross-process flock on a sidecar lock file so
// the CLI and the daemon never interleave writes.
func (m *Manager) lockAdvisory() (*os.File, error) {
	f, err := os.OpenFile(m.path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// readFile treats a missing file as an empty document so first-boot
// provisioning works against a bare system.
func (m *Manager) readFile() ([]byte, bool, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (m *Manager) loadDocument() (*confdoc.Document, error) {
	data, _, err := m.readFile()
	if err != nil {
		return nil, err
	}
	return confdoc.Parse(string(data)), nil
}

func (m *Manager) writeAtomic(content string) error {
	tmp := m.path + ".tmp"
	if err := m.writeFn(tmp, []byte(content), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

// verify re-reads and re-parses the file after the rename and checks
// that the operation landed and nothing else did. On any failure the
// previous content is put back.
func (m *Manager) verify(action, id, want string, before []byte, existed bool, e *pjsip.Endpoint) error {
	err := m.checkWritten(action, id, want, before, e)
	if err == nil {
		return nil
	}
	m.log.Warn("post-write check failed", "endpoint", id, "error", err)

	restored := false
	if existed {
		restored = os.WriteFile(m.path, before, 0644) == nil
	} else {
		restored = os.Remove(m.path) == nil
	}
	m.reg.IntegrityFail.Inc()
	return &IntegrityError{Path: m.path, Restored: restored}
}

// checkWritten is the post-condition: the bytes on disk are exactly the
// rendered document, the endpoint's sections exist (or are gone after a
// delete) with the values the caller asked for, and no foreign section
// appeared or disappeared. The byte comparison catches torn writes; the
// re-parse catches rendering bugs the bytes alone never could.
func (m *Manager) checkWritten(action, id, want string, before []byte, e *pjsip.Endpoint) error {
	got, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	if string(got) != want {
		return errors.New("on-disk content differs from the rendered document")
	}

	gotDoc := confdoc.Parse(string(got))
	if action == "delete" {
		if len(gotDoc.FindEntitySections(id)) != 0 {
			return fmt.Errorf("sections for %s still present after delete", id)
		}
	} else {
		gotEp, err := pjsip.Get(gotDoc, id)
		if err != nil {
			return fmt.Errorf("endpoint %s not readable after write: %w", id, err)
		}
		for _, kind := range []pjsip.SectionKind{pjsip.SectionEndpoint, pjsip.SectionAuth, pjsip.SectionAOR} {
			if !pairsEqual(pjsip.Resolved(e, kind), pjsip.Resolved(gotEp, kind)) {
				return fmt.Errorf("section %s of %s does not match the request", kind, id)
			}
		}
	}

	if name := foreignSectionChange(confdoc.Parse(string(before)), gotDoc, id); name != "" {
		return fmt.Errorf("foreign section [%s] changed", name)
	}
	return nil
}

func pairsEqual(a, b []confdoc.Pair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

// foreignSectionChange reports the name of the first section outside
// the target entity whose occurrence count differs between the two
// documents, or "" when every other section survived untouched.
func foreignSectionChange(before, after *confdoc.Document, id string) string {
	own := map[string]bool{id: true, id + "-auth": true, id + "-aor": true}
	counts := map[string]int{}
	for _, s := range before.Sections() {
		if !own[s.Name] {
			counts[s.Name]++
		}
	}
	for _, s := range after.Sections() {
		if !own[s.Name] {
			counts[s.Name]--
		}
	}
	for name, n := range counts {
		if n != 0 {
			return name
		}
	}
	return ""
}

// finishReload triggers the reload and records the outcome on the
// result. A failed reload never fails the operation: the file is
// already correct and a later reload will pick it up.
func (m *Manager) finishReload(log *logging.Logger, res *Result) {
	// Deliberately not the request context: the caller may be gone,
	// the written config still has to go live.
	rctx, cancel := context.WithTimeout(context.Background(), m.reloadTimeout)
	defer cancel()

	if err := m.reloader.Reload(rctx); err != nil {
		res.ReloadError = err.Error()
		m.reg.Reloads.WithLabelValues("failure").Inc()
		log.Warn("reload failed, config written but not live", "error", err)
		return
	}
	res.Reloaded = true
	m.reg.Reloads.WithLabelValues("success").Inc()
}

func mutateOutcome(err error) string {
	var verr *pjsip.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, pjsip.ErrNotFound):
		return "not_found"
	case errors.Is(err, pjsip.ErrDuplicate):
		return "duplicate"
	}
	return "error"
}

func unifiedDiff(before, after string) string {
	if before == after {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "pjsip.conf (before)",
		ToFile:   "pjsip.conf (after)",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}
