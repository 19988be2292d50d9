package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver drives a Chromium instance through playwright-go
type PlaywrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

// Launch starts the Playwright server and a Chromium browser
func Launch(opts Options) (*PlaywrightDriver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &PlaywrightDriver{pw: pw, browser: b, opts: opts}, nil
}

// InstallChromium downloads the driver and the Chromium build it needs
func InstallChromium() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func (d *PlaywrightDriver) NewContext(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := d.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(d.opts.UserAgent),
		Viewport:  &playwright.Size{Width: 1280, Height: 900},
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if d.opts.Timeout > 0 {
		bctx.SetDefaultTimeout(ms(d.opts.Timeout))
	}
	return &playwrightContext{ctx: bctx}, nil
}

func (d *PlaywrightDriver) Close() error {
	return errors.Join(d.browser.Close(), d.pw.Stop())
}

type playwrightContext struct {
	ctx playwright.BrowserContext
}

func (c *playwrightContext) Cookies(ctx context.Context) ([]Cookie, error) {
	raw, err := c.ctx.Cookies()
	if err != nil {
		return nil, err
	}
	out := make([]Cookie, 0, len(raw))
	for _, rc := range raw {
		ck := Cookie{
			Name:     rc.Name,
			Value:    rc.Value,
			Domain:   rc.Domain,
			Path:     rc.Path,
			Expires:  rc.Expires,
			HTTPOnly: rc.HttpOnly,
			Secure:   rc.Secure,
		}
		if rc.SameSite != nil {
			ck.SameSite = string(*rc.SameSite)
		}
		out = append(out, ck)
	}
	return out, nil
}

func (c *playwrightContext) AddCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	in := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, ck := range cookies {
		oc := playwright.OptionalCookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   playwright.String(ck.Domain),
			Path:     playwright.String(ck.Path),
			HttpOnly: playwright.Bool(ck.HTTPOnly),
			Secure:   playwright.Bool(ck.Secure),
		}
		if ck.Expires > 0 {
			oc.Expires = playwright.Float(ck.Expires)
		}
		switch ck.SameSite {
		case "Strict":
			oc.SameSite = playwright.SameSiteAttributeStrict
		case "None":
			oc.SameSite = playwright.SameSiteAttributeNone
		case "Lax":
			oc.SameSite = playwright.SameSiteAttributeLax
		}
		in = append(in, oc)
	}
	return c.ctx.AddCookies(in)
}

func (c *playwrightContext) NewPage(ctx context.Context) (Page, error) {
	p, err := c.ctx.NewPage()
	if err != nil {
		return nil, err
	}
	return &playwrightPage{page: p}, nil
}

func (c *playwrightContext) Close() error {
	return c.ctx.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func ms(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}

func (p *playwrightPage) locate(q Query) playwright.Locator {
	var loc playwright.Locator
	switch {
	case q.Role != "":
		opts := playwright.PageGetByRoleOptions{}
		if q.Name != "" {
			opts.Name = q.Name
		}
		loc = p.page.GetByRole(playwright.AriaRole(q.Role), opts)
	case q.Text != "":
		loc = p.page.GetByText(q.Text)
	default:
		loc = p.page.Locator(q.Selector)
	}
	if q.HasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: q.HasText})
	}
	return loc
}

func (p *playwrightPage) one(q Query) playwright.Locator {
	loc := p.locate(q)
	if q.Nth == Last {
		return loc.Last()
	}
	return loc.Nth(q.Nth)
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(ms(timeout)),
	})
	return err
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Count(ctx context.Context, q Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.locate(q).Count()
}

func (p *playwrightPage) Texts(ctx context.Context, q Query) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.locate(q).AllTextContents()
}

func (p *playwrightPage) Attributes(ctx context.Context, q Query, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := p.locate(q).All()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, el := range all {
		v, err := el.GetAttribute(name)
		if err != nil {
			return out, err
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func (p *playwrightPage) Click(ctx context.Context, q Query, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.one(q).Click(playwright.LocatorClickOptions{Timeout: playwright.Float(ms(timeout))})
}

func (p *playwrightPage) Fill(ctx context.Context, q Query, text string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.one(q).Fill(text, playwright.LocatorFillOptions{Timeout: playwright.Float(ms(timeout))})
}

func (p *playwrightPage) ScrollIntoView(ctx context.Context, q Query, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.one(q).ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
}

func (p *playwrightPage) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) ClickAt(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Click(x, y)
}

func (p *playwrightPage) WaitFor(ctx context.Context, q Query, state WaitState, timeout time.Duration) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return TimedOut, err
	}

	var st *playwright.WaitForSelectorState
	switch state {
	case StateHidden:
		st = playwright.WaitForSelectorStateHidden
	case StateAttached:
		st = playwright.WaitForSelectorStateAttached
	default:
		st = playwright.WaitForSelectorStateVisible
	}

	err := p.one(q).WaitFor(playwright.LocatorWaitForOptions{
		State:   st,
		Timeout: playwright.Float(ms(timeout)),
	})
	if err == nil {
		return Found, nil
	}
	if !errors.Is(err, playwright.ErrTimeout) {
		return TimedOut, err
	}
	if state != StateHidden {
		if n, cerr := p.locate(q).Count(); cerr == nil && n == 0 {
			return NotFound, nil
		}
	}
	return TimedOut, nil
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}
