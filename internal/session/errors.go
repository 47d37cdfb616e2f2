package session

import (
	"errors"

	"github.com/jackzampolin/sift/internal/render"
	"github.com/jackzampolin/sift/internal/schema"
)

// Action failures. Each leaves the session's prior state untouched.
var (
	// ErrIngest is returned when an upload cannot be turned into pages.
	ErrIngest = errors.New("ingest failed")
	// ErrRender is matched when the renderer failed. It is always surfaced
	// together with ErrIngest.
	ErrRender = render.ErrRender
	// ErrSchemaParse is matched when schema text is not a valid schema.
	ErrSchemaParse = schema.ErrParse
	// ErrExtraction is returned when the extractor fails.
	ErrExtraction = errors.New("extraction failed")
	// ErrGeneration is returned when the schema generator fails.
	ErrGeneration = errors.New("schema generation failed")
)

// Precondition failures.
var (
	ErrNoPages     = errors.New("no document loaded")
	ErrNoSelection = errors.New("no pages selected")
	ErrEmptySchema = errors.New("schema is empty")
	ErrNoData      = errors.New("no extracted data")
	ErrInvalidPage = errors.New("page index out of range")
	// ErrBusy is returned when an ingest, generation or extraction is
	// already running for the session.
	ErrBusy = errors.New("another operation is in progress")
)
