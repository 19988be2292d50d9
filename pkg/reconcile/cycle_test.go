package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
)

func newTestCycle(site *fakeSite, obs *recordingObserver) (*Cycle, *logger.TestLogger) {
	tl := logger.NewTestLogger()
	r, _ := newTestRunner(site, WithObserver(obs))
	c := NewCycle(site, r, "me", nil, tl)
	c.SetObserver(obs)
	c.NewRunID = func() string { return "01HZXRUN" }
	c.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	return c, tl
}

func TestCycleCompletes(t *testing.T) {
	site := newFakeSite()
	site.followers, site.following = 1000, 560
	site.lists[ledger.KindUnfollow] = []string{"/bob/"}
	site.lists[ledger.KindFollow] = []string{"/carol/"}
	site.profiles["carol"] = &fakeProfile{badge: true}

	obs := newRecordingObserver()
	c, tl := newTestCycle(site, obs)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "01HZXRUN", res.RunID)
	assert.True(t, res.Account.CountsKnown)
	require.Len(t, res.Passes, 2)
	assert.Equal(t, ledger.KindUnfollow, res.Passes[0].Kind)
	assert.Equal(t, 3, res.Passes[0].Budget)
	assert.Equal(t, ledger.KindFollow, res.Passes[1].Kind)
	assert.Equal(t, 2, res.Actions())
	assert.Equal(t, []Status{StatusCompleted}, obs.statuses)
	assert.Empty(t, site.screenshots)

	var tierFailures []logger.LogMessage
	for _, m := range tl.GetMessages() {
		assert.Equal(t, "01HZXRUN", m.Fields["run_id"], m.Message)
		if m.Message == "Detection tier failed" {
			tierFailures = append(tierFailures, m)
		}
	}
	require.Len(t, tierFailures, 1, "bob has no following list to search")
	assert.Equal(t, "bob", tierFailures[0].Fields["candidate"])
	assert.Equal(t, "unfollow", tierFailures[0].Fields["kind"])
	assert.Equal(t, "deep", tierFailures[0].Fields["tier"])
	assert.True(t, tl.HasMessage("List exhausted before budget"))
}

func TestCycleSessionInvalidAtStart(t *testing.T) {
	site := newFakeSite()
	site.sessionErr = errs.ErrSessionInvalid

	obs := newRecordingObserver()
	c, _ := newTestCycle(site, obs)
	res, err := c.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, StatusSessionInvalid, res.Status)
	assert.Empty(t, res.Passes)
	assert.Equal(t, []string{"error_session_invalid"}, site.screenshots)
	assert.Equal(t, []Status{StatusSessionInvalid}, obs.statuses)
}

func TestCycleStructuralFailureRunsNextPass(t *testing.T) {
	site := newFakeSite()
	site.listErr[ledger.KindUnfollow] = errs.New(errs.ErrorTypeStructural, "following dialog not_found")
	site.lists[ledger.KindFollow] = []string{"/carol/"}
	site.profiles["carol"] = &fakeProfile{buttons: map[string]bool{"Follow Back": true}}

	c, tl := newTestCycle(site, newRecordingObserver())
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Passes, 2)
	assert.NotEmpty(t, res.Passes[0].Error)
	assert.Equal(t, 1, res.Passes[1].Actions)
	assert.Equal(t, []string{"error_unfollow_pass"}, site.screenshots)
	assert.True(t, tl.HasMessage("Pass aborted"))
}

func TestCycleSessionLossMidPassSkipsFollowPass(t *testing.T) {
	site := newFakeSite()
	site.lists[ledger.KindUnfollow] = []string{"/bob/"}
	site.lists[ledger.KindFollow] = []string{"/carol/"}
	site.profileErr["bob"] = errs.ErrSessionInvalid

	c, _ := newTestCycle(site, newRecordingObserver())
	res, err := c.Run(context.Background())
	assert.True(t, errs.IsFatal(err))
	assert.Equal(t, StatusSessionInvalid, res.Status)
	assert.Len(t, res.Passes, 1)
	assert.Equal(t, []string{"bob"}, site.opened)
}

func TestCycleCountsUnavailable(t *testing.T) {
	site := newFakeSite()
	site.countsErr = errs.Wrap(errs.ErrorTypeNavigation, "profile", errors.New("net::ERR_ABORTED"))

	c, _ := newTestCycle(site, newRecordingObserver())
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Account.CountsKnown)
	assert.Equal(t, 10, res.Passes[0].Budget)
}

func TestCycleNavigationFailureAtStart(t *testing.T) {
	site := newFakeSite()
	site.sessionErr = errs.Wrap(errs.ErrorTypeNavigation, "home", errors.New("net::ERR_NAME_NOT_RESOLVED"))

	c, _ := newTestCycle(site, newRecordingObserver())
	res, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, site.screenshots)
}
