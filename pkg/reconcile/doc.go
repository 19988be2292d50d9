// Package reconcile runs the follow-graph reconciliation for one account.
//
// A Cycle checks the session, samples the account's counts once, and then
// runs two strictly sequential passes through a Runner: unfollow
// non-reciprocators, then follow back fans. Each pass collects up to a
// computed budget of unprocessed candidates from the account's own list and
// evaluates them one at a time. A failing candidate never stops the pass;
// an invalid session stops everything.
package reconcile
