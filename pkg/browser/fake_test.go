package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilders(t *testing.T) {
	q := CSS("button").Containing("Following").At(Last)
	assert.Equal(t, Query{Selector: "button", HasText: "Following", Nth: Last}, q)
	assert.Equal(t, Query{Text: "Follows you"}, ByText("Follows you"))
	assert.Equal(t, Query{Role: "button", Name: "Unfollow"}, ByRole("button", "Unfollow"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "found", Found.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "timed_out", TimedOut.String())
}

func TestFakePageNavigationSwapsScreens(t *testing.T) {
	ctx := context.Background()
	p := NewFakePage()
	btn := CSS("button").Containing("Follow Back")
	p.Screen("https://x/bob/")[btn] = &FakeElement{Count: 1}
	p.NavErrors["https://x/broken/"] = errors.New("net::ERR_ABORTED")

	require.NoError(t, p.Navigate(ctx, "https://x/bob/", 0))
	n, err := p.Count(ctx, btn)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, p.Navigate(ctx, "https://x/carol/", 0))
	n, err = p.Count(ctx, btn)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, p.Navigate(ctx, "https://x/broken/", 0))
	assert.Equal(t, []string{"https://x/bob/", "https://x/carol/", "https://x/broken/"}, p.Navigations)
}

func TestFakePageClickHooks(t *testing.T) {
	ctx := context.Background()
	p := NewFakePage()
	following := CSS("button").Containing("Following")
	unfollow := ByRole("button", "Unfollow")
	p.Set(following, &FakeElement{Count: 1, OnClick: func(p *FakePage) error {
		p.Set(unfollow, &FakeElement{Count: 1})
		return nil
	}})

	out, err := p.WaitFor(ctx, unfollow, StateVisible, 0)
	require.NoError(t, err)
	assert.Equal(t, NotFound, out)

	require.NoError(t, p.Click(ctx, following.At(0), 0))
	out, err = p.WaitFor(ctx, unfollow, StateVisible, 0)
	require.NoError(t, err)
	assert.Equal(t, Found, out)
	assert.True(t, p.Clicked(following))
	assert.Error(t, p.Click(ctx, CSS("missing"), 0))
}

func TestFakePageWaitStates(t *testing.T) {
	ctx := context.Background()
	p := NewFakePage()
	dialog := CSS("div[role='dialog']")

	out, _ := p.WaitFor(ctx, dialog, StateHidden, 0)
	assert.Equal(t, Found, out)

	p.Set(dialog, &FakeElement{Count: 1})
	out, _ = p.WaitFor(ctx, dialog, StateHidden, 0)
	assert.Equal(t, TimedOut, out)

	p.Set(dialog, &FakeElement{Count: 1, Hidden: true})
	out, _ = p.WaitFor(ctx, dialog, StateVisible, 0)
	assert.Equal(t, TimedOut, out)
}

func TestFakeContextCookies(t *testing.T) {
	ctx := context.Background()
	c := &FakeContext{Page: NewFakePage()}
	require.NoError(t, c.AddCookies(ctx, []Cookie{{Name: "sessionid", Value: "1:abc:def"}}))
	got, err := c.Cookies(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	page, err := c.NewPage(ctx)
	require.NoError(t, err)
	assert.Same(t, c.Page, page)
}
