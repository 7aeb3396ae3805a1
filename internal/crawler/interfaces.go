package crawler

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by stores when a key does not exist.
var ErrNotFound = errors.New("not found")

// Launcher starts a browser for the lifetime of one run.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser hands out pages. It is owned by a single run.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single live tab. Implementations are not safe for concurrent use.
type Page interface {
	// Navigate loads url and returns once the DOM content is loaded.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// VisibleText returns the rendered text of the document body.
	VisibleText(ctx context.Context) (string, error)
	// Anchors lists the links on the page with their visible text.
	Anchors(ctx context.Context) ([]Anchor, error)
	// ClickFirstMatching clicks the first clickable element whose text
	// contains pattern, reporting whether anything was clicked.
	ClickFirstMatching(ctx context.Context, pattern string) (bool, error)
	Close() error
}

// Enricher attaches the language-model report to a company.
type Enricher interface {
	Enrich(ctx context.Context, companyName, website, aboutText string) Enrichment
}

// StepFunc receives human-readable progress notes for one company.
type StepFunc func(step string)

// BlobStore writes and reads artifacts by path.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// Publisher pushes notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time and pauses (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
