// Package render turns uploaded PDF documents into ordered page images.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Backend names accepted by New.
const (
	BackendFitz     = "fitz"
	BackendPdftoppm = "pdftoppm"
)

// DefaultDPI is used when a renderer is configured with a non-positive DPI.
const DefaultDPI = 150.0

var (
	// ErrRender is matched by every failure to produce page images.
	ErrRender = errors.New("render error")
	// ErrInvalidPDF is returned by Validate for uploads that are not usable PDFs.
	ErrInvalidPDF = errors.New("invalid PDF")
)

// Page is one rendered page image.
type Page struct {
	Index    int // 0-based position in the document
	Image    []byte
	MIMEType string
	Width    int
	Height   int
}

// Result holds the rendered pages and the document's full page count.
// TotalPages can exceed len(Pages) when rendering was capped.
type Result struct {
	Pages      []Page
	TotalPages int
}

// Renderer renders PDF bytes to page images in page order.
// maxPages <= 0 renders every page.
type Renderer interface {
	Render(ctx context.Context, data []byte, maxPages int) (*Result, error)
}

// Config configures a renderer.
type Config struct {
	Backend string
	DPI     float64
	Logger  *slog.Logger
}

// New creates a renderer for the configured backend.
func New(cfg Config) (Renderer, error) {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendFitz:
		return &FitzRenderer{dpi: cfg.DPI, logger: cfg.Logger}, nil
	case BackendPdftoppm:
		return &PdftoppmRenderer{dpi: cfg.DPI, logger: cfg.Logger}, nil
	default:
		return nil, fmt.Errorf("unknown render backend: %s", cfg.Backend)
	}
}

// Validate checks that an upload is a readable PDF within maxSize bytes
// (maxSize <= 0 disables the size check) and returns its page count.
func Validate(name string, data []byte, maxSize int64) (int, error) {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return 0, fmt.Errorf("%w: %q is not a .pdf file", ErrInvalidPDF, name)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: file is empty", ErrInvalidPDF)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return 0, fmt.Errorf("%w: file is %d bytes, limit is %d", ErrInvalidPDF, len(data), maxSize)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, fmt.Errorf("%w: missing PDF header", ErrInvalidPDF)
	}

	pageCount, err := PageCount(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	if pageCount == 0 {
		return 0, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}
	return pageCount, nil
}

// PageCount reads the page count with pdfcpu in relaxed validation mode.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

func pagesToRender(total, maxPages int) int {
	if maxPages > 0 && total > maxPages {
		return maxPages
	}
	return total
}
