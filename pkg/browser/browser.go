// Package browser is the narrow page-driver capability the rest of igfollow
// depends on. The Playwright implementation lives in playwright.go; FakePage
// is a scriptable stand-in for tests.
package browser

import (
	"context"
	"time"
)

// Last selects the final match of a query
const Last = -1

// Query selects elements on a page. Exactly one of Selector, Text or Role
// is the base; HasText narrows the base to elements containing that text.
type Query struct {
	Selector string
	// HasText filters Selector matches by contained text
	HasText string
	// Text matches elements by visible text
	Text string
	// Role and Name match by ARIA role and accessible name
	Role string
	Name string
	// Nth picks one match for single-element actions (0 is the first,
	// Last the final one)
	Nth int
}

// CSS builds a selector query
func CSS(selector string) Query { return Query{Selector: selector} }

// ByText builds a visible-text query
func ByText(text string) Query { return Query{Text: text} }

// ByRole builds an ARIA role query
func ByRole(role, name string) Query { return Query{Role: role, Name: name} }

// Containing narrows q to matches containing text
func (q Query) Containing(text string) Query {
	q.HasText = text
	return q
}

// At picks the nth match
func (q Query) At(n int) Query {
	q.Nth = n
	return q
}

// WaitState is the element state a bounded wait polls for
type WaitState string

const (
	StateVisible  WaitState = "visible"
	StateHidden   WaitState = "hidden"
	StateAttached WaitState = "attached"
)

// Outcome is the result of a bounded wait
type Outcome int

const (
	// Found means the requested state was reached
	Found Outcome = iota
	// NotFound means the wait expired and no element matched at all
	NotFound
	// TimedOut means the wait expired with matching elements in another state
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Page is one browser tab. Every call blocks until done or its timeout.
// Errors are reserved for driver failures and exhausted action timeouts;
// bounded waits report an Outcome instead.
type Page interface {
	// Navigate loads url and waits for DOMContentLoaded
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL() string

	Count(ctx context.Context, q Query) (int, error)
	// Texts returns the text content of every match
	Texts(ctx context.Context, q Query) ([]string, error)
	// Attributes returns the named attribute of every match that has it
	Attributes(ctx context.Context, q Query, name string) ([]string, error)

	Click(ctx context.Context, q Query, timeout time.Duration) error
	Fill(ctx context.Context, q Query, text string, timeout time.Duration) error
	ScrollIntoView(ctx context.Context, q Query, timeout time.Duration) error
	Press(ctx context.Context, key string) error
	// ClickAt clicks page coordinates
	ClickAt(ctx context.Context, x, y float64) error

	WaitFor(ctx context.Context, q Query, state WaitState, timeout time.Duration) (Outcome, error)
	Screenshot(ctx context.Context, path string) error
}

// Cookie uses Playwright's field names so stored cookie lists are
// interchangeable with other Playwright tooling
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Context is an isolated browsing context with its own cookie jar
type Context interface {
	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookies(ctx context.Context, cookies []Cookie) error
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Options configures the launched browser and its contexts
type Options struct {
	Headless  bool
	UserAgent string
	// Timeout is the default for calls that take none
	Timeout time.Duration
}

// Driver is a launched browser
type Driver interface {
	NewContext(ctx context.Context) (Context, error)
	Close() error
}
