// Package rendertest provides PDF fixtures and a fake renderer for tests.
package rendertest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/jackzampolin/sift/internal/render"
)

// BlankPDF builds a minimal well-formed PDF with the given number of empty pages.
func BlankPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))

	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// PNG returns a tiny solid PNG whose gray level encodes n, so tests can
// tell page images apart.
func PNG(n int) []byte {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(n)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// Renderer is a fake render.Renderer that returns TotalPages synthetic pages.
type Renderer struct {
	TotalPages int
	Err        error

	// Block, when set, is waited on before Render returns.
	Block chan struct{}

	mu    sync.Mutex
	calls int
}

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, data []byte, maxPages int) (*render.Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	if r.Block != nil {
		select {
		case <-r.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}

	n := r.TotalPages
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages := make([]render.Page, n)
	for i := range pages {
		pages[i] = render.Page{Index: i, Image: PNG(i), MIMEType: "image/png", Width: 4, Height: 4}
	}
	return &render.Result{Pages: pages, TotalPages: r.TotalPages}, nil
}

// Calls returns how many times Render was called.
func (r *Renderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
