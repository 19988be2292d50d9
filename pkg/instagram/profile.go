package instagram

import (
	"context"
	"fmt"

	"igfollow/pkg/browser"
	"igfollow/pkg/detect"
	errs "igfollow/pkg/errors"
)

// Profile is a rendered candidate profile page
type Profile struct {
	site   *Site
	handle string
}

// Handle is the profile's username
func (p *Profile) Handle() string { return p.handle }

// HasButton reports whether a button containing text is present
func (p *Profile) HasButton(ctx context.Context, text string) (bool, error) {
	n, err := p.site.page.Count(ctx, button(text))
	return n > 0, err
}

// HasText reports whether text appears anywhere on the page
func (p *Profile) HasText(ctx context.Context, text string) (bool, error) {
	n, err := p.site.page.Count(ctx, browser.ByText(text))
	return n > 0, err
}

// OpenFollowing opens the profile's own following overlay
func (p *Profile) OpenFollowing(ctx context.Context) (detect.FollowingList, error) {
	s := p.site
	if err := s.page.Click(ctx, profileFollowingLink(p.handle), s.timeouts.Action); err != nil {
		return nil, err
	}
	if _, err := s.pacers.ShortSettle.Wait(ctx); err != nil {
		return nil, err
	}
	return &followingOverlay{site: s}, nil
}

// IsFollowing reports whether the account already follows or has requested
// to follow this profile
func (p *Profile) IsFollowing(ctx context.Context) (bool, error) {
	for _, label := range []string{"Following", "Requested"} {
		ok, err := p.HasButton(ctx, label)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Unfollow clicks "Following" and then the confirmation. Only a clicked
// confirmation counts as done.
func (p *Profile) Unfollow(ctx context.Context) error {
	s := p.site
	if err := s.page.Click(ctx, button("Following"), s.timeouts.Action); err != nil {
		return errs.Wrap(errs.ErrorTypeCandidate, "following button", err)
	}
	if _, err := s.pacers.ShortSettle.Wait(ctx); err != nil {
		return err
	}

	out, err := s.page.WaitFor(ctx, confirmUnfollow, browser.StateVisible, s.timeouts.Action)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeCandidate, "unfollow confirmation", err)
	}
	if out != browser.Found {
		return errs.New(errs.ErrorTypeTimeout, "unfollow confirmation "+out.String())
	}
	if err := s.page.Click(ctx, confirmUnfollow, s.timeouts.Action); err != nil {
		return errs.Wrap(errs.ErrorTypeCandidate, "confirm unfollow", err)
	}

	_, err = s.pacers.AfterAction.Wait(ctx)
	return err
}

// FollowBack clicks the button matching the signal that was detected:
// "Follow Back" for an explicit signal, the plain "Follow" button for a
// badge
func (p *Profile) FollowBack(ctx context.Context, sig detect.Signal) error {
	var target browser.Query
	switch sig {
	case detect.ReciprocatesExplicit:
		target = button("Follow Back")
	case detect.ReciprocatesBadge:
		target = button("Follow")
	default:
		return errs.New(errs.ErrorTypeCandidate, fmt.Sprintf("no follow affordance for signal %s", sig))
	}

	s := p.site
	if err := s.page.Click(ctx, target.At(0), s.timeouts.Action); err != nil {
		return errs.Wrap(errs.ErrorTypeCandidate, "follow button", err)
	}
	_, err := s.pacers.AfterAction.Wait(ctx)
	return err
}

// followingOverlay is a profile's following dialog with its search box
type followingOverlay struct {
	site *Site
}

func (o *followingOverlay) Search(ctx context.Context, query string) error {
	s := o.site
	if err := s.page.Fill(ctx, dialogSearch, query, s.timeouts.Action); err != nil {
		return err
	}
	_, err := s.pacers.ShortSettle.Wait(ctx)
	return err
}

func (o *followingOverlay) HasMatch(ctx context.Context, handle string) (bool, error) {
	n, err := o.site.page.Count(ctx, dialogProfileLink(handle))
	return n > 0, err
}

// Close presses Escape and waits for the dialog to go away, clicking
// outside it when it does not
func (o *followingOverlay) Close(ctx context.Context) error {
	s := o.site
	if err := s.page.Press(ctx, "Escape"); err != nil {
		s.log(ctx).WithError(err).Debug("Escape on following dialog failed")
	}

	out, err := s.page.WaitFor(ctx, dialog, browser.StateHidden, s.timeouts.Modal)
	if err == nil && out == browser.Found {
		return nil
	}

	s.log(ctx).WithField("outcome", out.String()).Debug("Dialog still open, clicking outside")
	if err := s.page.ClickAt(ctx, 10, 10); err != nil {
		return fmt.Errorf("dismiss following dialog: %w", err)
	}
	return nil
}
