package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igfollow/pkg/ledger"
	"igfollow/pkg/reconcile"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "me", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", "me.last_run.json"), m.Path())

	r, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, r)

	started := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	cycle := reconcile.CycleResult{
		RunID:   "01HZXRUN",
		Account: reconcile.Account{Handle: "me", Followers: 1000, Following: 560, CountsKnown: true},
		Status:  reconcile.StatusCompleted,
		Passes: []reconcile.PassResult{
			{Kind: ledger.KindUnfollow, State: reconcile.StateDone, Budget: 3, Actions: 2, Skipped: 1, Duration: time.Minute},
			{Kind: ledger.KindFollow, State: reconcile.StateDone, Budget: 5, Actions: 1},
		},
		Started:  started,
		Finished: started.Add(10 * time.Minute),
	}
	next := started.Add(4 * time.Hour)
	require.NoError(t, m.Save(cycle, next))

	r, err = m.Load()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1, r.Version)
	assert.Equal(t, "01HZXRUN", r.Cycle.RunID)
	assert.Equal(t, 3, r.Cycle.Actions())
	assert.True(t, next.Equal(r.NextRun))
	assert.Equal(t, time.Minute, r.Cycle.Passes[0].Duration)

	_, err = os.Stat(m.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveOverwrites(t *testing.T) {
	m, err := NewManager(t.TempDir(), "me", nil)
	require.NoError(t, err)

	require.NoError(t, m.Save(reconcile.CycleResult{RunID: "first"}, time.Time{}))
	require.NoError(t, m.Save(reconcile.CycleResult{RunID: "second", Status: reconcile.StatusSessionInvalid}, time.Time{}))

	r, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", r.Cycle.RunID)
	assert.Equal(t, reconcile.StatusSessionInvalid, r.Cycle.Status)
}

func TestLoadCorrupt(t *testing.T) {
	m, err := NewManager(t.TempDir(), "me", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(m.Path(), []byte("{"), 0644))

	_, err = m.Load()
	assert.ErrorContains(t, err, "decode")
}

func TestDelete(t *testing.T) {
	m, err := NewManager(t.TempDir(), "me", nil)
	require.NoError(t, err)
	require.NoError(t, m.Delete())

	require.NoError(t, m.Save(reconcile.CycleResult{RunID: "x"}, time.Time{}))
	require.NoError(t, m.Delete())
	r, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, r)
}
