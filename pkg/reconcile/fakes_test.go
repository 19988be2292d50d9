package reconcile

import (
	"context"
	"errors"
	"time"

	"igfollow/pkg/collect"
	"igfollow/pkg/detect"
	"igfollow/pkg/ledger"
)

type fakeList struct {
	match bool
	err   error
}

func (l *fakeList) Search(ctx context.Context, query string) error { return l.err }
func (l *fakeList) HasMatch(ctx context.Context, handle string) (bool, error) {
	return l.match, nil
}
func (l *fakeList) Close(ctx context.Context) error { return nil }

type fakeProfile struct {
	buttons   map[string]bool
	badge     bool
	deep      *fakeList
	following bool

	unfollowErr error
	followErr   error

	unfollowed   bool
	followedWith detect.Signal
}

func (p *fakeProfile) HasButton(ctx context.Context, text string) (bool, error) {
	return p.buttons[text], nil
}

func (p *fakeProfile) HasText(ctx context.Context, text string) (bool, error) {
	return text == "Follows you" && p.badge, nil
}

func (p *fakeProfile) OpenFollowing(ctx context.Context) (detect.FollowingList, error) {
	if p.deep == nil {
		return nil, errors.New("no following link")
	}
	return p.deep, nil
}

func (p *fakeProfile) IsFollowing(ctx context.Context) (bool, error) { return p.following, nil }

func (p *fakeProfile) Unfollow(ctx context.Context) error {
	if p.unfollowErr != nil {
		return p.unfollowErr
	}
	p.unfollowed = true
	return nil
}

func (p *fakeProfile) FollowBack(ctx context.Context, sig detect.Signal) error {
	if p.followErr != nil {
		return p.followErr
	}
	p.followedWith = sig
	return nil
}

type fakeScope struct {
	hrefs []string
}

func (s *fakeScope) Links(ctx context.Context) ([]string, error) { return s.hrefs, nil }
func (s *fakeScope) RevealMore(ctx context.Context) error        { return nil }

type fakeSite struct {
	sessionErr error
	followers  int
	following  int
	countsErr  error

	lists      map[ledger.Kind][]string
	listErr    map[ledger.Kind]error
	profiles   map[string]*fakeProfile
	profileErr map[string]error

	opened      []string
	screenshots []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		lists:      map[ledger.Kind][]string{},
		listErr:    map[ledger.Kind]error{},
		profiles:   map[string]*fakeProfile{},
		profileErr: map[string]error{},
	}
}

func (s *fakeSite) CheckSession(ctx context.Context) error { return s.sessionErr }

func (s *fakeSite) ReadCounts(ctx context.Context, handle string) (int, int, error) {
	return s.followers, s.following, s.countsErr
}

func (s *fakeSite) OpenOwnList(ctx context.Context, self string, kind ledger.Kind) (collect.ListScope, error) {
	if err := s.listErr[kind]; err != nil {
		return nil, err
	}
	return &fakeScope{hrefs: s.lists[kind]}, nil
}

func (s *fakeSite) OpenProfile(ctx context.Context, handle string) (Profile, error) {
	s.opened = append(s.opened, handle)
	if err := s.profileErr[handle]; err != nil {
		return nil, err
	}
	p, ok := s.profiles[handle]
	if !ok {
		p = &fakeProfile{}
		s.profiles[handle] = p
	}
	return p, nil
}

func (s *fakeSite) Screenshot(ctx context.Context, name string) (string, error) {
	s.screenshots = append(s.screenshots, name)
	return name + ".png", nil
}

type recordingObserver struct {
	budgets  map[ledger.Kind]int
	outcomes map[Outcome]int
	statuses []Status
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{budgets: map[ledger.Kind]int{}, outcomes: map[Outcome]int{}}
}

func (o *recordingObserver) Budget(kind ledger.Kind, n int)          { o.budgets[kind] = n }
func (o *recordingObserver) Candidate(kind ledger.Kind, out Outcome) { o.outcomes[out]++ }
func (o *recordingObserver) CycleFinished(status Status)             { o.statuses = append(o.statuses, status) }

func instantCollector(l collect.Ledger) *collect.Collector {
	return collect.New(l,
		collect.WithMaxIdleScrolls(1),
		collect.WithSettle(0, func(context.Context, time.Duration) error { return nil }),
	)
}
