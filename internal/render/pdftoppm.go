package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
)

// PdftoppmRenderer renders pages with poppler's pdftoppm.
type PdftoppmRenderer struct {
	dpi    float64
	logger *slog.Logger
}

// Render implements Renderer. The upload is written to a temp dir that is
// removed before Render returns.
func (r *PdftoppmRenderer) Render(ctx context.Context, data []byte, maxPages int) (*Result, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm not found in PATH: %w", ErrRender, err)
	}

	total, err := PageCount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRender)
	}

	tmpDir, err := os.MkdirTemp("", "sift-render-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp dir: %w", ErrRender, err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "upload.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: failed to write upload: %w", ErrRender, err)
	}

	n := pagesToRender(total, maxPages)
	pages := make([]Page, n)

	type result struct {
		index int
		err   error
	}
	results := make(chan result, n)
	sem := make(chan struct{}, runtime.NumCPU())

	for i := 0; i < n; i++ {
		sem <- struct{}{}
		go func(index int) {
			defer func() { <-sem }()
			page, err := r.renderPage(ctx, pdfPath, tmpDir, index)
			if err == nil {
				pages[index] = page
			}
			results <- result{index: index, err: err}
		}(i)
	}

	var firstErr error
	for i := 0; i < n; i++ {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: failed to render page %d: %w", ErrRender, res.index+1, res.err)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	r.logger.Debug("rendered pages", "backend", BackendPdftoppm, "rendered", n, "total", total, "dpi", r.dpi)
	return &Result{Pages: pages, TotalPages: total}, nil
}

// renderPage renders the 0-based page index to PNG.
func (r *PdftoppmRenderer) renderPage(ctx context.Context, pdfPath, dir string, index int) (Page, error) {
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	default:
	}

	// -singlefile writes <prefix>.png without a page number suffix.
	pageStr := strconv.Itoa(index + 1)
	outputPrefix := filepath.Join(dir, "page-"+pageStr)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.FormatFloat(r.dpi, 'f', -1, 64),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return Page{}, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	img, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return Page{}, fmt.Errorf("failed to read rendered image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return Page{}, fmt.Errorf("failed to decode rendered image: %w", err)
	}

	return Page{
		Index:    index,
		Image:    img,
		MIMEType: "image/png",
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
