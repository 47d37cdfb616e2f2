package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/sift/internal/llmcall"
	"github.com/jackzampolin/sift/internal/render"
	"github.com/jackzampolin/sift/internal/schema"
)

// Ingest renders an uploaded PDF and replaces the loaded pages. Documents
// longer than MaxPages keep their first MaxPages pages and the update
// carries a warning naming the original count. The selection and any
// extracted data are cleared; the schema text is kept.
func (s *Session) Ingest(ctx context.Context, name string, data []byte) (Update, error) {
	s.mu.Lock()
	if err := s.begin("ingest"); err != nil {
		s.mu.Unlock()
		return Update{}, err
	}
	s.mu.Unlock()
	defer s.end()

	if s.renderer == nil {
		return Update{}, fmt.Errorf("%w: no renderer configured", ErrIngest)
	}
	if _, err := render.Validate(name, data, s.maxFileSize); err != nil {
		return Update{}, fmt.Errorf("%w: %w", ErrIngest, err)
	}

	start := time.Now()
	res, err := s.renderer.Render(ctx, data, MaxPages)
	if err != nil {
		if !errors.Is(err, ErrRender) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrRender, err)
		}
		s.logger.Warn("render failed", "file", name, "error", err)
		return Update{}, fmt.Errorf("%w: %w", ErrIngest, err)
	}
	if res == nil {
		return Update{}, fmt.Errorf("%w: %w: renderer returned no result", ErrIngest, ErrRender)
	}
	if len(res.Pages) == 0 {
		return Update{}, fmt.Errorf("%w: %w: document has no pages", ErrIngest, ErrRender)
	}

	pages := res.Pages
	total := res.TotalPages
	if total < len(pages) {
		total = len(pages)
	}
	var warnings []string
	if len(pages) > MaxPages {
		pages = pages[:MaxPages]
	}
	if total > MaxPages {
		warnings = append(warnings, fmt.Sprintf(
			"Document has %d pages; only the first %d were loaded.", total, MaxPages))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &File{Name: name, Data: data, UploadedAt: time.Now()}
	s.pages = pages
	s.totalPages = total
	s.selected = make(map[int]struct{})
	s.data = nil
	s.warnings = warnings

	s.logger.Info("document ingested",
		"file", name,
		"pages", len(pages),
		"total_pages", total,
		"duration", time.Since(start),
	)
	return s.changed(true, warnings), nil
}

// ToggleSelection flips whether the page at index is selected.
func (s *Session) ToggleSelection(index int) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pages == nil {
		return s.unchanged(), ErrNoPages
	}
	if index < 0 || index >= len(s.pages) {
		return s.unchanged(), fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidPage, index, len(s.pages))
	}

	if _, ok := s.selected[index]; ok {
		delete(s.selected, index)
	} else {
		s.selected[index] = struct{}{}
	}
	return s.changed(false, nil), nil
}

// SelectAll selects every page when flag is true. When flag is false the
// selection is cleared only if every page is currently selected; a partial
// selection is left alone.
func (s *Session) SelectAll(flag bool) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pages == nil {
		return s.unchanged(), ErrNoPages
	}

	if flag {
		if s.allSelected() {
			return s.unchanged(), nil
		}
		for i := range s.pages {
			s.selected[i] = struct{}{}
		}
		return s.changed(true, nil), nil
	}

	if !s.allSelected() {
		return s.unchanged(), nil
	}
	s.selected = make(map[int]struct{})
	return s.changed(true, nil), nil
}

// GenerateSchema asks the generator for a schema describing the selected
// pages and replaces the schema text with it, discarding any edits.
func (s *Session) GenerateSchema(ctx context.Context) (Update, error) {
	s.mu.Lock()
	if err := s.requireSelection(); err != nil {
		s.mu.Unlock()
		return Update{}, err
	}
	if err := s.begin("generate"); err != nil {
		s.mu.Unlock()
		return Update{}, err
	}
	images := s.selectedImages()
	s.mu.Unlock()
	defer s.end()

	if s.generator == nil {
		return Update{}, fmt.Errorf("%w: no schema generator configured", ErrGeneration)
	}

	start := time.Now()
	text, err := s.generator.Propose(llmcall.WithSessionID(ctx, s.id), images)
	if err != nil {
		s.logger.Warn("schema generation failed", "pages", len(images), "error", err)
		return Update{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaText = text
	s.logger.Info("schema generated", "pages", len(images), "duration", time.Since(start))
	return s.changed(true, nil), nil
}

// EditSchema replaces the schema text verbatim. It is not validated until
// ExtractData.
func (s *Session) EditSchema(text string) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	if text == s.schemaText {
		return s.unchanged()
	}
	s.schemaText = text
	return s.changed(false, nil)
}

// ExtractData parses the schema text and extracts data from the selected
// pages. On any failure the previous data is kept.
func (s *Session) ExtractData(ctx context.Context) (Update, error) {
	s.mu.Lock()
	if err := s.requireSelection(); err != nil {
		s.mu.Unlock()
		return Update{}, err
	}
	if strings.TrimSpace(s.schemaText) == "" {
		s.mu.Unlock()
		return Update{}, ErrEmptySchema
	}
	if err := s.begin("extract"); err != nil {
		s.mu.Unlock()
		return Update{}, err
	}
	text := s.schemaText
	images := s.selectedImages()
	s.mu.Unlock()
	defer s.end()

	def, err := schema.Parse(text)
	if err != nil {
		return Update{}, fmt.Errorf("invalid schema: %w", err)
	}

	if s.extractor == nil {
		return Update{}, fmt.Errorf("%w: no extractor configured", ErrExtraction)
	}

	start := time.Now()
	data, err := s.extractor.Extract(llmcall.WithSessionID(ctx, s.id), images, def)
	if err != nil {
		s.logger.Warn("extraction failed", "schema", def.Name, "pages", len(images), "error", err)
		return Update{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return Update{}, fmt.Errorf("%w: extractor returned invalid JSON: %w", ErrExtraction, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = json.RawMessage(compact.Bytes())
	s.logger.Info("data extracted", "schema", def.Name, "pages", len(images), "duration", time.Since(start))
	return s.changed(true, nil), nil
}

// ExportData returns the extracted data as JSON indented by two spaces,
// keys in the order they were extracted.
func (s *Session) ExportData() ([]byte, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		return nil, ErrNoData
	}
	return FormatJSON(data)
}

// FormatJSON indents JSON by two spaces without reordering keys.
func FormatJSON(data json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format data: %w", err)
	}
	return buf.Bytes(), nil
}

// requireSelection checks pages are loaded and some are selected. Caller holds mu.
func (s *Session) requireSelection() error {
	if s.pages == nil {
		return ErrNoPages
	}
	if len(s.selected) == 0 {
		return ErrNoSelection
	}
	return nil
}
