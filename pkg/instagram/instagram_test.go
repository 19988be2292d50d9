package instagram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igfollow/pkg/browser"
	"igfollow/pkg/collect"
	"igfollow/pkg/config"
	"igfollow/pkg/detect"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/ledger"
	"igfollow/pkg/ratelimit"
)

const base = "https://ig.test"

func newTestSite(t *testing.T) (*Site, *browser.FakePage) {
	t.Helper()
	page := browser.NewFakePage()
	cfg := config.DefaultConfig().Browser
	cfg.BaseURL = base + "/"
	cfg.ScreenshotDir = "shots"
	s := NewSite(page, cfg, ratelimit.Instant(), nil)
	s.Now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return s, page
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"1,234", 1234},
		{"1.5K", 1500},
		{"2M", 2000000},
		{"691 followers", 691},
		{"12.3k followers", 12300},
		{"1 B", 1000000000},
		{"  42  ", 42},
		{"abc", 0},
		{"", 0},
		{"followers 10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCount(tt.text))
		})
	}
}

func TestCheckSession(t *testing.T) {
	ctx := context.Background()

	t.Run("logged in", func(t *testing.T) {
		s, page := newTestSite(t)
		require.NoError(t, s.CheckSession(ctx))
		assert.Equal(t, []string{base + "/"}, page.Navigations)
	})

	t.Run("login form", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Screen(base + "/")[loginForm] = &browser.FakeElement{Count: 1}
		err := s.CheckSession(ctx)
		assert.ErrorIs(t, err, errs.ErrSessionInvalid)
		assert.True(t, errs.IsFatal(err))
	})

	t.Run("navigation failure", func(t *testing.T) {
		s, page := newTestSite(t)
		page.NavErrors[base+"/"] = errors.New("net::ERR_TIMED_OUT")
		err := s.CheckSession(ctx)
		assert.True(t, errs.Is(err, errs.ErrorTypeNavigation))
	})
}

func TestReadCounts(t *testing.T) {
	ctx := context.Background()

	t.Run("header links", func(t *testing.T) {
		s, page := newTestSite(t)
		screen := page.Screen(s.ProfileURL("me"))
		screen[header] = &browser.FakeElement{Count: 1}
		screen[headerLinks] = &browser.FakeElement{Count: 2, Texts: []string{"1,204 followers", "380 following"}}

		followers, following, err := s.ReadCounts(ctx, "me")
		require.NoError(t, err)
		assert.Equal(t, 1204, followers)
		assert.Equal(t, 380, following)
	})

	t.Run("span fallback fills missing values", func(t *testing.T) {
		s, page := newTestSite(t)
		screen := page.Screen(s.ProfileURL("me"))
		screen[header] = &browser.FakeElement{Count: 1}
		screen[headerLinks] = &browser.FakeElement{Count: 1, Texts: []string{"2.1K followers"}}
		screen[headerSpans] = &browser.FakeElement{Count: 3, Texts: []string{"12 posts", "99 followers", "512 following"}}

		followers, following, err := s.ReadCounts(ctx, "me")
		require.NoError(t, err)
		assert.Equal(t, 2100, followers)
		assert.Equal(t, 512, following)
	})

	t.Run("no header", func(t *testing.T) {
		s, _ := newTestSite(t)
		followers, following, err := s.ReadCounts(ctx, "me")
		require.NoError(t, err)
		assert.Zero(t, followers)
		assert.Zero(t, following)
	})

	t.Run("logged out", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Screen(s.ProfileURL("me"))[loginForm] = &browser.FakeElement{Count: 1}
		_, _, err := s.ReadCounts(ctx, "me")
		assert.ErrorIs(t, err, errs.ErrSessionInvalid)
	})
}

func TestOpenOwnList(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		kind ledger.Kind
		list string
	}{
		{ledger.KindUnfollow, "following"},
		{ledger.KindFollow, "followers"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s, page := newTestSite(t)
			link := ownListLink("me", tt.list)
			page.Screen(s.ProfileURL("me"))[link] = &browser.FakeElement{Count: 1, OnClick: func(p *browser.FakePage) error {
				p.Set(dialog, &browser.FakeElement{Count: 1})
				p.Set(dialogRoleLinks, &browser.FakeElement{Count: 2, Attrs: map[string][]string{"href": {"/alice/", "/bob/"}}})
				return nil
			}}

			scope, err := s.OpenOwnList(ctx, "me", tt.kind)
			require.NoError(t, err)
			assert.True(t, page.Clicked(link))

			links, err := scope.Links(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"/alice/", "/bob/"}, links)
		})
	}

	t.Run("missing link is structural", func(t *testing.T) {
		s, _ := newTestSite(t)
		_, err := s.OpenOwnList(ctx, "me", ledger.KindUnfollow)
		assert.True(t, errs.IsStructural(err))
	})

	t.Run("dialog never appears", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Screen(s.ProfileURL("me"))[ownListLink("me", "following")] = &browser.FakeElement{Count: 1}
		_, err := s.OpenOwnList(ctx, "me", ledger.KindUnfollow)
		assert.True(t, errs.IsStructural(err))
	})
}

func TestListDialogFallbackAndScroll(t *testing.T) {
	ctx := context.Background()
	s, page := newTestSite(t)
	page.Set(dialogLinks, &browser.FakeElement{Count: 1, Attrs: map[string][]string{"href": {"/carol/"}}})
	scrolled := 0
	page.Set(dialogTail, &browser.FakeElement{Count: 5, OnScroll: func(*browser.FakePage) { scrolled++ }})

	d := &listDialog{site: s}
	links, err := d.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/carol/"}, links)

	require.NoError(t, d.RevealMore(ctx))
	assert.Equal(t, 1, scrolled)
}

func TestCollectOverListDialog(t *testing.T) {
	ctx := context.Background()
	s, page := newTestSite(t)
	rows := [][]string{{"/me/", "/alice/"}, {"/me/", "/alice/", "/bob/", "/explore/tags/"}, {"/alice/", "/bob/", "/carol/"}}
	round := 0
	links := &browser.FakeElement{Count: 1, Attrs: map[string][]string{"href": rows[0]}}
	page.Set(dialogRoleLinks, links)
	page.Set(dialogTail, &browser.FakeElement{Count: 1, OnScroll: func(*browser.FakePage) {
		if round < len(rows)-1 {
			round++
			links.Attrs["href"] = rows[round]
		}
	}})

	c := collect.New(noneProcessed{}, collect.WithSettle(0, func(context.Context, time.Duration) error { return nil }))
	got := c.Collect(ctx, &listDialog{site: s}, "me", ledger.KindUnfollow, 3)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got)
}

type noneProcessed struct{}

func (noneProcessed) IsProcessed(context.Context, string, string, ledger.Kind) bool { return false }

func TestOpenProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		s, page := newTestSite(t)
		p, err := s.OpenProfile(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", p.Handle())
		assert.Equal(t, base+"/bob/", page.URL())
	})

	t.Run("navigation error", func(t *testing.T) {
		s, page := newTestSite(t)
		page.NavErrors[s.ProfileURL("bob")] = errors.New("net::ERR_ABORTED")
		_, err := s.OpenProfile(ctx, "bob")
		assert.True(t, errs.Is(err, errs.ErrorTypeNavigation))
		assert.False(t, errs.IsFatal(err))
	})

	t.Run("login wall", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Screen(s.ProfileURL("bob"))[loginForm] = &browser.FakeElement{Count: 1}
		_, err := s.OpenProfile(ctx, "bob")
		assert.True(t, errs.IsFatal(err))
	})
}

func TestProfileDetectionTiers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		screen func(browser.FakeScreen)
		want   detect.Signal
	}{
		{
			name: "follow back button",
			screen: func(s browser.FakeScreen) {
				s[button("Follow Back")] = &browser.FakeElement{Count: 1}
			},
			want: detect.ReciprocatesExplicit,
		},
		{
			name: "badge",
			screen: func(s browser.FakeScreen) {
				s[browser.ByText("Follows you")] = &browser.FakeElement{Count: 1}
			},
			want: detect.ReciprocatesBadge,
		},
		{
			name: "deep match",
			screen: func(s browser.FakeScreen) {
				s[profileFollowingLink("bob")] = &browser.FakeElement{Count: 1, OnClick: func(p *browser.FakePage) error {
					p.Set(dialog, &browser.FakeElement{Count: 1})
					p.Set(dialogSearch, &browser.FakeElement{Count: 1})
					p.Set(dialogProfileLink("me"), &browser.FakeElement{Count: 1})
					return nil
				}}
			},
			want: detect.ReciprocatesDeep,
		},
		{
			name:   "nothing",
			screen: func(browser.FakeScreen) {},
			want:   detect.NoSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, page := newTestSite(t)
			tt.screen(page.Screen(s.ProfileURL("bob")))
			p, err := s.OpenProfile(ctx, "bob")
			require.NoError(t, err)

			got := detect.New().Resolve(ctx, p, "me")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFollowingOverlayClose(t *testing.T) {
	ctx := context.Background()

	t.Run("escape closes", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Set(dialog, &browser.FakeElement{Count: 1})
		page.OnPress = func(p *browser.FakePage, key string) {
			if key == "Escape" {
				p.Remove(dialog)
			}
		}
		o := &followingOverlay{site: s}
		require.NoError(t, o.Close(ctx))
		assert.Equal(t, []string{"Escape"}, page.Presses)
		assert.Zero(t, page.ClicksAt)
	})

	t.Run("falls back to clicking outside", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Set(dialog, &browser.FakeElement{Count: 1})
		o := &followingOverlay{site: s}
		require.NoError(t, o.Close(ctx))
		assert.Equal(t, 1, page.ClicksAt)
	})

	t.Run("search fills the dialog box", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Set(dialogSearch, &browser.FakeElement{Count: 1})
		o := &followingOverlay{site: s}
		require.NoError(t, o.Search(ctx, "me"))
		assert.Equal(t, "me", page.Fills[dialogSearch])
	})
}

func TestIsFollowing(t *testing.T) {
	ctx := context.Background()
	for _, label := range []string{"Following", "Requested"} {
		t.Run(label, func(t *testing.T) {
			s, page := newTestSite(t)
			page.Screen(s.ProfileURL("bob"))[button(label)] = &browser.FakeElement{Count: 1}
			p, err := s.OpenProfile(ctx, "bob")
			require.NoError(t, err)
			ok, err := p.IsFollowing(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}

	s, _ := newTestSite(t)
	p, err := s.OpenProfile(ctx, "carol")
	require.NoError(t, err)
	ok, err := p.IsFollowing(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnfollow(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Screen(s.ProfileURL("bob"))[button("Following")] = &browser.FakeElement{Count: 1, OnClick: func(p *browser.FakePage) error {
			p.Set(confirmUnfollow, &browser.FakeElement{Count: 1})
			return nil
		}}
		p, err := s.OpenProfile(ctx, "bob")
		require.NoError(t, err)
		require.NoError(t, p.Unfollow(ctx))
		assert.True(t, page.Clicked(confirmUnfollow))
	})

	t.Run("confirmation never shows", func(t *testing.T) {
		s, page := newTestSite(t)
		page.Screen(s.ProfileURL("bob"))[button("Following")] = &browser.FakeElement{Count: 1}
		p, err := s.OpenProfile(ctx, "bob")
		require.NoError(t, err)
		err = p.Unfollow(ctx)
		assert.True(t, errs.Is(err, errs.ErrorTypeTimeout))
		assert.False(t, page.Clicked(confirmUnfollow))
	})

	t.Run("no following button", func(t *testing.T) {
		s, _ := newTestSite(t)
		p, err := s.OpenProfile(ctx, "bob")
		require.NoError(t, err)
		err = p.Unfollow(ctx)
		assert.True(t, errs.Is(err, errs.ErrorTypeCandidate))
	})
}

func TestFollowBack(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		sig     detect.Signal
		target  browser.Query
		wantErr bool
	}{
		{"explicit", detect.ReciprocatesExplicit, button("Follow Back"), false},
		{"badge", detect.ReciprocatesBadge, button("Follow"), false},
		{"no signal", detect.NoSignal, button("Follow"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, page := newTestSite(t)
			page.Screen(s.ProfileURL("bob"))[tt.target] = &browser.FakeElement{Count: 1}
			p, err := s.OpenProfile(ctx, "bob")
			require.NoError(t, err)

			err = p.FollowBack(ctx, tt.sig)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, page.Clicked(tt.target))
				return
			}
			require.NoError(t, err)
			assert.True(t, page.Clicked(tt.target))
		})
	}
}

func TestScreenshotName(t *testing.T) {
	s, page := newTestSite(t)
	path, err := s.Screenshot(context.Background(), "error_session_invalid")
	require.NoError(t, err)
	assert.Equal(t, "shots/error_session_invalid_20240309_140507.png", path)
	assert.Equal(t, []string{path}, page.Screenshots)
}
