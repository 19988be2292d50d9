// Package instagram is the page model igfollow drives through a
// browser.Page: the account's own follower/following dialogs, a candidate's
// profile, the header counts and login-form detection.
//
// Selectors live in selectors.go so layout changes touch one file.
package instagram
