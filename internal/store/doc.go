// Package store declares the persistence contract for crawl runs and their
// per-company results. Implementations live in other packages; this package
// must not import database drivers or concrete clients.
package store
