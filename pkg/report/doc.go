// Package report keeps the summary of the latest cycle on disk so `igfollow
// status` can show what the last run did, even when the backing store is a
// remote Redis the operator cannot easily inspect.
//
// Reports are written atomically (temp file, fsync, rename) under
//
//	$XDG_DATA_HOME/igfollow/reports/{account}.last_run.json
package report
