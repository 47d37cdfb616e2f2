package session

import (
	"encoding/json"
	"slices"
	"time"
)

// View is a read-only snapshot of session state for presentation.
type View struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     uint64          `json:"version"`
	File        *FileInfo       `json:"file,omitempty"`
	Pages       []PageInfo      `json:"pages"`
	TotalPages  int             `json:"total_pages"`
	Selected    []int           `json:"selected"`
	AllSelected bool            `json:"all_selected"`
	SchemaText  string          `json:"schema_text"`
	Data        json.RawMessage `json:"data,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Busy        string          `json:"busy,omitempty"`
}

// FileInfo describes the uploaded file.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PageInfo describes one loaded page without its image.
type PageInfo struct {
	Index    int  `json:"index"`
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	Selected bool `json:"selected"`
}

// Summary is a short listing entry for a session.
type Summary struct {
	ID        string    `json:"id"`
	File      string    `json:"file,omitempty"`
	Pages     int       `json:"pages"`
	Selected  int       `json:"selected"`
	HasData   bool      `json:"has_data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		ID:          s.id,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		Version:     s.version,
		Pages:       make([]PageInfo, len(s.pages)),
		TotalPages:  s.totalPages,
		Selected:    s.selectedIndices(),
		AllSelected: s.allSelected(),
		SchemaText:  s.schemaText,
		Data:        cloneData(s.data),
		Warnings:    slices.Clone(s.warnings),
		Busy:        s.busy,
	}
	if s.file != nil {
		v.File = &FileInfo{Name: s.file.Name, Size: len(s.file.Data), UploadedAt: s.file.UploadedAt}
	}
	for i, p := range s.pages {
		_, selected := s.selected[i]
		v.Pages[i] = PageInfo{Index: i, Width: p.Width, Height: p.Height, Selected: selected}
	}
	return v
}

// Summary returns a listing entry for the session.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		ID:        s.id,
		Pages:     len(s.pages),
		Selected:  len(s.selected),
		HasData:   s.data != nil,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.file != nil {
		sum.File = s.file.Name
	}
	return sum
}
