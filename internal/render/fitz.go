package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer renders pages in-process with MuPDF.
type FitzRenderer struct {
	dpi    float64
	logger *slog.Logger
}

// Render implements Renderer. A MuPDF document is not safe for concurrent
// use, so pages render sequentially.
func (r *FitzRenderer) Render(ctx context.Context, data []byte, maxPages int) (*Result, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %w", ErrRender, err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRender)
	}

	n := pagesToRender(total, maxPages)
	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to render page %d: %w", ErrRender, i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("%w: failed to encode page %d: %w", ErrRender, i+1, err)
		}

		bounds := img.Bounds()
		pages = append(pages, Page{
			Index:    i,
			Image:    buf.Bytes(),
			MIMEType: "image/png",
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
		})
	}

	r.logger.Debug("rendered pages", "backend", BackendFitz, "rendered", n, "total", total, "dpi", r.dpi)
	return &Result{Pages: pages, TotalPages: total}, nil
}
