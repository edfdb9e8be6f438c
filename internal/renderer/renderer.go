// Package renderer produces fully rendered DOM snapshots of review pages.
package renderer

import (
	"context"

	"github.com/reviewlens/reviewlens/internal/plan"
)

// Snapshot is one rendered page: the DOM serialized after rendering, and the
// page URL after any redirects. The URL doubles as the page identifier for
// the pagination loop guard.
type Snapshot struct {
	HTML string
	URL  string
}

// Renderer is the page-rendering collaborator. One Renderer backs exactly
// one scrape session; it is never shared across sessions.
//
// Release must be called on every exit path. It is safe to call more than
// once.
type Renderer interface {
	// Render navigates to the URL and returns the page snapshot.
	Render(ctx context.Context, url string) (Snapshot, error)

	// Click activates the element matched by the selector and returns the
	// snapshot after the page settles. Renderers without an interactive
	// page return types.ErrInteractionUnsupported.
	Click(ctx context.Context, kind plan.SelectorKind, sel string) (Snapshot, error)

	// Release frees the underlying resources (browser process, connections).
	Release()
}

// Factory creates one Renderer per scrape session.
type Factory interface {
	New(ctx context.Context) (Renderer, error)
}
