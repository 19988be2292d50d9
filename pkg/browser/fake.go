package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeElement scripts what a Query matches on a FakePage
type FakeElement struct {
	Count int
	Texts []string
	Attrs map[string][]string
	// Hidden matches that never become visible
	Hidden bool
	// Err is returned by every action on the element
	Err error
	// OnClick runs after a successful click; it may reshape the page
	OnClick func(p *FakePage) error
	// OnScroll runs after ScrollIntoView
	OnScroll func(p *FakePage)
}

// FakeScreen is the set of elements rendered at one URL
type FakeScreen map[Query]*FakeElement

// FakePage is a scriptable Page. Navigate swaps the current screen for the
// one registered at the URL, so tests describe a site as a map of screens.
// Queries match on the exact Query value with Nth cleared.
type FakePage struct {
	mu sync.Mutex

	Screens map[string]FakeScreen
	// NavErrors fails navigation to specific URLs
	NavErrors map[string]error
	// OnPress runs for keyboard presses on the current screen
	OnPress func(p *FakePage, key string)
	// OnClickAt runs for coordinate clicks on the current screen
	OnClickAt func(p *FakePage)

	current FakeScreen
	url     string

	Navigations []string
	Clicks      []Query
	Fills       map[Query]string
	Presses     []string
	ClicksAt    int
	Waits       []Query
	Screenshots []string
}

// NewFakePage creates a FakePage with no screens
func NewFakePage() *FakePage {
	return &FakePage{
		Screens:   make(map[string]FakeScreen),
		NavErrors: make(map[string]error),
		Fills:     make(map[Query]string),
		current:   FakeScreen{},
	}
}

// Screen returns the screen registered at url, creating it if needed
func (p *FakePage) Screen(url string) FakeScreen {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.Screens[url]
	if !ok {
		s = FakeScreen{}
		p.Screens[url] = s
	}
	return s
}

// Set registers (or replaces) an element on the current screen
func (p *FakePage) Set(q Query, el *FakeElement) {
	q.Nth = 0
	p.current[q] = el
}

// Remove drops an element from the current screen
func (p *FakePage) Remove(q Query) {
	q.Nth = 0
	delete(p.current, q)
}

// Clicked reports whether q was clicked
func (p *FakePage) Clicked(q Query) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	q.Nth = 0
	for _, c := range p.Clicks {
		c.Nth = 0
		if c == q {
			return true
		}
	}
	return false
}

func (p *FakePage) lookup(q Query) *FakeElement {
	q.Nth = 0
	return p.current[q]
}

func (p *FakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	if err := p.NavErrors[url]; err != nil {
		p.mu.Unlock()
		return err
	}
	s, ok := p.Screens[url]
	if !ok {
		s = FakeScreen{}
		p.Screens[url] = s
	}
	p.current = s
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *FakePage) URL() string { return p.url }

func (p *FakePage) Count(ctx context.Context, q Query) (int, error) {
	el := p.lookup(q)
	if el == nil {
		return 0, nil
	}
	if el.Err != nil {
		return 0, el.Err
	}
	return el.Count, nil
}

func (p *FakePage) Texts(ctx context.Context, q Query) ([]string, error) {
	el := p.lookup(q)
	if el == nil {
		return nil, nil
	}
	return el.Texts, el.Err
}

func (p *FakePage) Attributes(ctx context.Context, q Query, name string) ([]string, error) {
	el := p.lookup(q)
	if el == nil {
		return nil, nil
	}
	if el.Err != nil {
		return nil, el.Err
	}
	return append([]string(nil), el.Attrs[name]...), nil
}

func (p *FakePage) act(q Query) (*FakeElement, error) {
	el := p.lookup(q)
	if el == nil || el.Count == 0 || el.Hidden {
		return nil, fmt.Errorf("fake: %+v: timeout waiting for element", q)
	}
	if el.Err != nil {
		return nil, el.Err
	}
	return el, nil
}

func (p *FakePage) Click(ctx context.Context, q Query, timeout time.Duration) error {
	el, err := p.act(q)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.Clicks = append(p.Clicks, q)
	p.mu.Unlock()
	if el.OnClick != nil {
		return el.OnClick(p)
	}
	return nil
}

func (p *FakePage) Fill(ctx context.Context, q Query, text string, timeout time.Duration) error {
	if _, err := p.act(q); err != nil {
		return err
	}
	p.mu.Lock()
	p.Fills[q] = text
	p.mu.Unlock()
	return nil
}

func (p *FakePage) ScrollIntoView(ctx context.Context, q Query, timeout time.Duration) error {
	el, err := p.act(q)
	if err != nil {
		return err
	}
	if el.OnScroll != nil {
		el.OnScroll(p)
	}
	return nil
}

func (p *FakePage) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	p.Presses = append(p.Presses, key)
	p.mu.Unlock()
	if p.OnPress != nil {
		p.OnPress(p, key)
	}
	return nil
}

func (p *FakePage) ClickAt(ctx context.Context, x, y float64) error {
	p.mu.Lock()
	p.ClicksAt++
	p.mu.Unlock()
	if p.OnClickAt != nil {
		p.OnClickAt(p)
	}
	return nil
}

// WaitFor resolves immediately from the scripted screen
func (p *FakePage) WaitFor(ctx context.Context, q Query, state WaitState, timeout time.Duration) (Outcome, error) {
	p.mu.Lock()
	p.Waits = append(p.Waits, q)
	p.mu.Unlock()

	el := p.lookup(q)
	present := el != nil && el.Count > 0
	if el != nil && el.Err != nil {
		return TimedOut, el.Err
	}

	switch state {
	case StateHidden:
		if !present || el.Hidden {
			return Found, nil
		}
		return TimedOut, nil
	case StateAttached:
		if present {
			return Found, nil
		}
		return NotFound, nil
	default:
		if !present {
			return NotFound, nil
		}
		if el.Hidden {
			return TimedOut, nil
		}
		return Found, nil
	}
}

func (p *FakePage) Screenshot(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

// FakeContext is an in-memory Context serving one FakePage
type FakeContext struct {
	Page    *FakePage
	Jar     []Cookie
	Closed  bool
	PageErr error
}

func (c *FakeContext) Cookies(ctx context.Context) ([]Cookie, error) {
	return append([]Cookie(nil), c.Jar...), nil
}

func (c *FakeContext) AddCookies(ctx context.Context, cookies []Cookie) error {
	c.Jar = append(c.Jar, cookies...)
	return nil
}

func (c *FakeContext) NewPage(ctx context.Context) (Page, error) {
	if c.PageErr != nil {
		return nil, c.PageErr
	}
	return c.Page, nil
}

func (c *FakeContext) Close() error {
	c.Closed = true
	return nil
}

// FakeDriver hands out a single FakeContext
type FakeDriver struct {
	Context *FakeContext
	Closed  bool
}

func (d *FakeDriver) NewContext(ctx context.Context) (Context, error) {
	return d.Context, nil
}

func (d *FakeDriver) Close() error {
	d.Closed = true
	return nil
}
