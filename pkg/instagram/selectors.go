package instagram

import (
	"fmt"

	"igfollow/pkg/browser"
)

const (
	dialogSelector = "div[role='dialog']"
	loginInput     = "input[name='username']"
)

var (
	dialog          = browser.CSS(dialogSelector)
	loginForm       = browser.CSS(loginInput)
	header          = browser.CSS("header")
	headerLinks     = browser.CSS("header a")
	headerSpans     = browser.CSS("header span")
	dialogRoleLinks = browser.CSS(dialogSelector + " a[role='link'][href^='/']")
	dialogLinks     = browser.CSS(dialogSelector + " a[href^='/']")
	dialogTail      = browser.CSS(dialogSelector + " div").At(browser.Last)
	dialogSearch    = browser.CSS(dialogSelector + " input[placeholder='Search']")
	confirmUnfollow = browser.ByRole("button", "Unfollow")
)

func button(text string) browser.Query {
	return browser.CSS("button").Containing(text)
}

func ownListLink(self, list string) browser.Query {
	return browser.CSS(fmt.Sprintf("a[href='/%s/%s/']", self, list))
}

func profileFollowingLink(handle string) browser.Query {
	return browser.CSS(fmt.Sprintf("a[href*='/%s/following/']", handle))
}

func dialogProfileLink(handle string) browser.Query {
	return browser.CSS(fmt.Sprintf("%s a[href='/%s/']", dialogSelector, handle))
}
