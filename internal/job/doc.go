// Package job owns the single crawl run a process may have in flight: its
// status, the results gathered so far and the ordered event log observers
// poll. A Manager accepts one submission at a time and executes it on
// whichever goroutine calls Execute.
package job
