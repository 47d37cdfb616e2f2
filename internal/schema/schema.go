// Package schema implements the declarative extraction schema grammar.
//
// A schema is a YAML document naming the object to extract and its fields:
//
//	name: Document
//	description: Basic document content
//	fields:
//	  - name: title
//	    type: string
//	  - name: content
//	    type: array
//	    items:
//	      type: string
//
// Parse turns schema text into a Definition, which renders a strict JSON
// Schema for structured LLM output and validates extracted data against it.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeEnum    FieldType = "enum"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// Types lists every supported field type.
var Types = []FieldType{TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeDate, TypeEnum, TypeObject, TypeArray}

func (t FieldType) valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// maxDepth bounds object/array nesting.
const maxDepth = 8

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrParse is matched by every error returned from Parse.
var ErrParse = errors.New("schema parse error")

// ParseError describes a problem in schema text.
type ParseError struct {
	Line int    // 1-based, 0 when unknown
	Path string // dotted field path, empty at document level
	Msg  string
}

func (e *ParseError) Error() string {
	prefix := "schema"
	if e.Line > 0 {
		prefix = fmt.Sprintf("schema: line %d", e.Line)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: field %q: %s", prefix, e.Path, e.Msg)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

// Is reports ErrParse so callers can match with errors.Is.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Field is one named property of an object.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Optional    bool
	Values      []string // enum only
	Fields      []Field  // object only
	Items       *Field   // array only; Name is empty
	Line        int
}

// Definition is a parsed schema.
type Definition struct {
	Name        string
	Description string
	Fields      []Field

	once     sync.Once
	compiled *jsonschema.Schema
	doc      []byte
	err      error
}
