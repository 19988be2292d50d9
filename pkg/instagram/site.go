package instagram

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"igfollow/pkg/browser"
	"igfollow/pkg/collect"
	"igfollow/pkg/config"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
	"igfollow/pkg/ratelimit"
)

// Timeouts bounds every blocking page call
type Timeouts struct {
	Navigation time.Duration
	Modal      time.Duration
	Action     time.Duration
}

// Site drives one browser page through Instagram's web UI
type Site struct {
	page          browser.Page
	baseURL       string
	timeouts      Timeouts
	pacers        ratelimit.Pacers
	screenshotDir string
	logger        logger.Logger

	// Now stamps screenshot names
	Now func() time.Time
}

// NewSite creates a Site from the browser config section
func NewSite(page browser.Page, cfg config.BrowserConfig, pacers ratelimit.Pacers, log logger.Logger) *Site {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Site{
		page:    page,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		timeouts: Timeouts{
			Navigation: cfg.NavigationTimeout,
			Modal:      cfg.ModalTimeout,
			Action:     cfg.ActionTimeout,
		},
		pacers:        pacers,
		screenshotDir: cfg.ScreenshotDir,
		logger:        log,
		Now:           time.Now,
	}
}

// log prefers the logger carried by ctx so lines keep the cycle's fields
func (s *Site) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger).WithField("component", "instagram")
}

// HomeURL is the landing page used for the session check
func (s *Site) HomeURL() string {
	return s.baseURL + "/"
}

// ProfileURL is the profile page of handle
func (s *Site) ProfileURL(handle string) string {
	return fmt.Sprintf("%s/%s/", s.baseURL, handle)
}

func (s *Site) navigate(ctx context.Context, url string) error {
	if err := s.page.Navigate(ctx, url, s.timeouts.Navigation); err != nil {
		return errs.Wrap(errs.ErrorTypeNavigation, url, err)
	}
	return nil
}

func (s *Site) settle(ctx context.Context, p *ratelimit.Pacer) error {
	_, err := p.Wait(ctx)
	return err
}

// loginShown reports whether the login form replaced the expected page
func (s *Site) loginShown(ctx context.Context) (bool, error) {
	n, err := s.page.Count(ctx, loginForm)
	return n > 0, err
}

// CheckSession loads the home page and fails with ErrSessionInvalid when
// the login form is shown
func (s *Site) CheckSession(ctx context.Context) error {
	if err := s.navigate(ctx, s.HomeURL()); err != nil {
		return err
	}
	if err := s.settle(ctx, s.pacers.PageSettle); err != nil {
		return err
	}
	login, err := s.loginShown(ctx)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNavigation, "login check", err)
	}
	if login {
		return errs.ErrSessionInvalid
	}
	return nil
}

// ReadCounts returns the follower and following counts shown in the
// profile header of handle. A count that cannot be read is 0.
func (s *Site) ReadCounts(ctx context.Context, handle string) (followers, following int, err error) {
	if err := s.openProfilePage(ctx, handle); err != nil {
		return 0, 0, err
	}

	out, err := s.page.WaitFor(ctx, header, browser.StateVisible, s.timeouts.Action)
	if err == nil && out == browser.Found {
		texts, terr := s.page.Texts(ctx, headerLinks)
		if terr != nil {
			s.log(ctx).WithError(terr).Debug("Reading header links failed")
		}
		followers, following = countsFromTexts(texts, 0, 0)
	}

	if followers == 0 || following == 0 {
		texts, terr := s.page.Texts(ctx, headerSpans)
		if terr != nil {
			s.log(ctx).WithError(terr).Debug("Reading header spans failed")
		}
		followers, following = countsFromTexts(texts, followers, following)
	}
	return followers, following, nil
}

func (s *Site) openProfilePage(ctx context.Context, handle string) error {
	if err := s.navigate(ctx, s.ProfileURL(handle)); err != nil {
		return err
	}
	if err := s.settle(ctx, s.pacers.PageSettle); err != nil {
		return err
	}
	login, err := s.loginShown(ctx)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNavigation, "login check", err)
	}
	if login {
		return errs.ErrSessionInvalid
	}
	return nil
}

// listName maps an action kind to the own-profile list its candidates come
// from: unfollow candidates are people the account follows, follow-back
// candidates are its followers
func listName(kind ledger.Kind) string {
	if kind == ledger.KindUnfollow {
		return "following"
	}
	return "followers"
}

// OpenOwnList opens the account's followers or following dialog. Failure
// to open it is structural and aborts the pass.
func (s *Site) OpenOwnList(ctx context.Context, self string, kind ledger.Kind) (collect.ListScope, error) {
	if err := s.openProfilePage(ctx, self); err != nil {
		return nil, err
	}

	list := listName(kind)
	if err := s.page.Click(ctx, ownListLink(self, list), s.timeouts.Action); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStructural, "open "+list+" dialog", err)
	}
	out, err := s.page.WaitFor(ctx, dialog, browser.StateVisible, s.timeouts.Modal)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStructural, list+" dialog", err)
	}
	if out != browser.Found {
		return nil, errs.New(errs.ErrorTypeStructural, fmt.Sprintf("%s dialog %s", list, out))
	}
	if err := s.settle(ctx, s.pacers.PageSettle); err != nil {
		return nil, err
	}

	return &listDialog{site: s}, nil
}

// OpenProfile navigates to a candidate's profile
func (s *Site) OpenProfile(ctx context.Context, handle string) (*Profile, error) {
	if err := s.openProfilePage(ctx, handle); err != nil {
		return nil, err
	}
	return &Profile{site: s, handle: handle}, nil
}

// Screenshot saves a diagnostic capture named {name}_{YYYYmmdd_HHMMSS}.png
func (s *Site) Screenshot(ctx context.Context, name string) (string, error) {
	path := filepath.Join(s.screenshotDir, fmt.Sprintf("%s_%s.png", name, s.Now().Format("20060102_150405")))
	if err := s.page.Screenshot(ctx, path); err != nil {
		return "", err
	}
	s.log(ctx).WithField("path", path).Info("Screenshot saved")
	return path, nil
}

// listDialog is the account's own followers/following dialog
type listDialog struct {
	site *Site
}

// Links prefers role=link anchors and falls back to any relative anchor
func (d *listDialog) Links(ctx context.Context) ([]string, error) {
	hrefs, err := d.site.page.Attributes(ctx, dialogRoleLinks, "href")
	if err != nil {
		return nil, err
	}
	if len(hrefs) > 0 {
		return hrefs, nil
	}
	return d.site.page.Attributes(ctx, dialogLinks, "href")
}

// RevealMore scrolls the last rendered row into view
func (d *listDialog) RevealMore(ctx context.Context) error {
	return d.site.page.ScrollIntoView(ctx, dialogTail, d.site.timeouts.Action)
}
