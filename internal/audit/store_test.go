package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"), 30)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndQuery(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(Event{
		Actor:       "admin",
		Action:      "create",
		EndpointID:  "100",
		OperationID: "op-1",
		Status:      "ok",
		Details:     map[string]any{"warnings": 0},
		IP:          "10.0.0.5",
	}))
	require.NoError(t, s.Write(Event{
		Actor:      "admin",
		Action:     "delete",
		EndpointID: "200",
		Status:     "ok",
	}))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	events, err := s.Query(time.Unix(0, 0), time.Now().Add(time.Hour), "create", "", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "100", events[0].EndpointID)
	assert.Equal(t, "op-1", events[0].OperationID)
	assert.Equal(t, "10.0.0.5", events[0].IP)
	assert.EqualValues(t, 0, events[0].Details["warnings"])

	events, err = s.Query(time.Unix(0, 0), time.Now().Add(time.Hour), "", "200", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "delete", events[0].Action)
}

func TestRecentOrdering(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{"create", "update", "delete"} {
		require.NoError(t, s.Write(Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Actor:     "cli",
			Action:    action,
			Status:    "ok",
		}))
	}

	events, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "delete", events[0].Action)
	assert.Equal(t, "update", events[1].Action)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(Event{
		Timestamp: time.Now().AddDate(0, 0, -60),
		Actor:     "admin", Action: "create", Status: "ok",
	}))
	require.NoError(t, s.Write(Event{
		Actor: "admin", Action: "update", Status: "ok",
	}))

	removed, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
