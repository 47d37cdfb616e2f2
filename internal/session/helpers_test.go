package session

import (
	"context"
	"time"

	"github.com/jackzampolin/sift/internal/render"
	"github.com/jackzampolin/sift/internal/render/rendertest"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// overEagerRenderer ignores maxPages.
type overEagerRenderer struct {
	pages int
}

func (r *overEagerRenderer) Render(ctx context.Context, data []byte, maxPages int) (*render.Result, error) {
	pages := make([]render.Page, r.pages)
	for i := range pages {
		pages[i] = render.Page{Index: i, Image: rendertest.PNG(i), MIMEType: "image/png"}
	}
	return &render.Result{Pages: pages, TotalPages: r.pages}, nil
}

// emptyRenderer returns neither a result nor an error.
type emptyRenderer struct{}

func (emptyRenderer) Render(ctx context.Context, data []byte, maxPages int) (*render.Result, error) {
	return nil, nil
}
