// Package session holds one user's document, page selection, schema text
// and extracted data, and drives the renderer, schema generator and
// extractor at the right transitions.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/sift/internal/render"
	"github.com/jackzampolin/sift/internal/schema"
)

// MaxPages is the most pages kept from one upload.
const MaxPages = 10

// Export file metadata.
const (
	ExportFilename = "data.json"
	ExportMIMEType = "application/json"
)

// SchemaGenerator proposes schema text for page images.
type SchemaGenerator interface {
	Propose(ctx context.Context, images [][]byte) (string, error)
}

// Extractor pulls data matching a schema out of page images.
type Extractor interface {
	Extract(ctx context.Context, images [][]byte, def *schema.Definition) (json.RawMessage, error)
}

// Config configures a Session.
type Config struct {
	ID          string // generated when empty
	Renderer    render.Renderer
	Generator   SchemaGenerator
	Extractor   Extractor
	MaxFileSize int64  // 0 disables the upload size check
	SchemaText  string // defaults to schema.DefaultText
	Logger      *slog.Logger
}

// File is the uploaded document.
type File struct {
	Name       string
	Data       []byte
	UploadedAt time.Time
}

// Update is returned by every mutating operation. Presentation layers
// redraw from state when Redisplay is set instead of trusting widget
// contents they already hold.
type Update struct {
	Changed   bool     `json:"changed"`
	Redisplay bool     `json:"redisplay"`
	Warnings  []string `json:"warnings,omitempty"`
	Version   uint64   `json:"version"`
}

// Session is the state of one interaction. It is safe for concurrent use;
// at most one of Ingest, GenerateSchema and ExtractData runs at a time.
type Session struct {
	id        string
	createdAt time.Time

	renderer    render.Renderer
	generator   SchemaGenerator
	extractor   Extractor
	maxFileSize int64
	logger      *slog.Logger

	mu         sync.RWMutex
	file       *File
	pages      []render.Page
	totalPages int
	selected   map[int]struct{}
	schemaText string
	data       json.RawMessage
	warnings   []string
	version    uint64
	updatedAt  time.Time
	busy       string
}

// New creates an empty session.
func New(cfg Config) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.SchemaText == "" {
		cfg.SchemaText = schema.DefaultText
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	now := time.Now()
	return &Session{
		id:          cfg.ID,
		createdAt:   now,
		updatedAt:   now,
		renderer:    cfg.Renderer,
		generator:   cfg.Generator,
		extractor:   cfg.Extractor,
		maxFileSize: cfg.MaxFileSize,
		logger:      cfg.Logger.With("session_id", cfg.ID),
		selected:    make(map[int]struct{}),
		schemaText:  cfg.SchemaText,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Version returns the state version, bumped on every change.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SchemaText returns the current schema source.
func (s *Session) SchemaText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemaText
}

// Data returns a copy of the extracted data, or nil when there is none.
func (s *Session) Data() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneData(s.data)
}

// PageCount returns the number of loaded pages.
func (s *Session) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Page returns the loaded page at index.
func (s *Session) Page(index int) (render.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pages == nil {
		return render.Page{}, ErrNoPages
	}
	if index < 0 || index >= len(s.pages) {
		return render.Page{}, ErrInvalidPage
	}
	return s.pages[index], nil
}

// Selected returns the selected page indices in ascending order.
func (s *Session) Selected() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedIndices()
}

// begin marks op as in flight. Caller holds mu.
func (s *Session) begin(op string) error {
	if s.busy != "" {
		return ErrBusy
	}
	s.busy = op
	return nil
}

// end clears the in-flight marker.
func (s *Session) end() {
	s.mu.Lock()
	s.busy = ""
	s.mu.Unlock()
}

// changed bumps the version. Caller holds mu.
func (s *Session) changed(redisplay bool, warnings []string) Update {
	s.version++
	s.updatedAt = time.Now()
	return Update{Changed: true, Redisplay: redisplay, Warnings: warnings, Version: s.version}
}

// unchanged reports the current version. Caller holds mu.
func (s *Session) unchanged() Update {
	return Update{Version: s.version}
}

// selectedIndices returns selected indices in ascending order. Caller holds mu.
func (s *Session) selectedIndices() []int {
	out := make([]int, 0, len(s.selected))
	for i := range s.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// selectedImages returns the selected page images in ascending index
// order. Caller holds mu.
func (s *Session) selectedImages() [][]byte {
	indices := s.selectedIndices()
	images := make([][]byte, len(indices))
	for i, idx := range indices {
		images[i] = s.pages[idx].Image
	}
	return images
}

func (s *Session) allSelected() bool {
	return len(s.pages) > 0 && len(s.selected) == len(s.pages)
}

func cloneData(data json.RawMessage) json.RawMessage {
	if data == nil {
		return nil
	}
	return append(json.RawMessage(nil), data...)
}
