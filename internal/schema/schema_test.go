package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Default(t *testing.T) {
	def, err := Parse(DefaultText)
	require.NoError(t, err)

	assert.Equal(t, "Document", def.Name)
	require.Len(t, def.Fields, 2)
	assert.Equal(t, "title", def.Fields[0].Name)
	assert.Equal(t, TypeString, def.Fields[0].Type)
	assert.Equal(t, TypeArray, def.Fields[1].Type)
	require.NotNil(t, def.Fields[1].Items)
	assert.Equal(t, TypeString, def.Fields[1].Items.Type)
}

func TestTemplates(t *testing.T) {
	templates, err := Templates()
	require.NoError(t, err)
	require.NotEmpty(t, templates)
	assert.Equal(t, "document", templates[0].Name)

	for _, tmpl := range templates {
		t.Run(tmpl.Name, func(t *testing.T) {
			_, err := Parse(tmpl.Text)
			assert.NoError(t, err)
		})
	}

	_, err = GetTemplate("Invoice")
	assert.NoError(t, err)
	_, err = GetTemplate("nope")
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contract.yaml"), []byte(DefaultText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	templates, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "contract", templates[0].Name)
	assert.Equal(t, DefaultText, templates[0].Text)
	assert.Equal(t, filepath.Join(dir, "contract.yaml"), templates[0].Path)

	templates, err = LoadDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLine int
		wantMsg  string
	}{
		{name: "empty", text: "  \n", wantMsg: "schema is empty"},
		{name: "not a mapping", text: "- a\n- b\n", wantLine: 1, wantMsg: "must be a mapping"},
		{name: "bad yaml", text: "name: Doc\nfields: [\n", wantMsg: "invalid YAML"},
		{name: "missing name", text: "fields:\n  - name: a\n    type: string\n", wantMsg: "name is required"},
		{name: "bad name", text: "name: my doc\nfields:\n  - name: a\n    type: string\n", wantMsg: "not a valid identifier"},
		{name: "missing fields", text: "name: Doc\n", wantMsg: "fields is required"},
		{name: "empty fields", text: "name: Doc\nfields: []\n", wantMsg: "must not be empty"},
		{name: "unknown top key", text: "name: Doc\nextra: 1\nfields:\n  - name: a\n    type: string\n", wantLine: 2, wantMsg: `unknown key "extra"`},
		{
			name:     "unknown type",
			text:     "name: Doc\nfields:\n  - name: a\n    type: text\n",
			wantLine: 3,
			wantMsg:  `unknown type "text"`,
		},
		{
			name:     "missing type",
			text:     "name: Doc\nfields:\n  - name: a\n",
			wantLine: 3,
			wantMsg:  "type is required",
		},
		{
			name:     "duplicate field",
			text:     "name: Doc\nfields:\n  - name: a\n    type: string\n  - name: a\n    type: integer\n",
			wantLine: 5,
			wantMsg:  "duplicate field name (first defined at line 3)",
		},
		{
			name:     "invalid field name",
			text:     "name: Doc\nfields:\n  - name: 1st\n    type: string\n",
			wantLine: 3,
			wantMsg:  "not a valid identifier",
		},
		{
			name:     "enum without values",
			text:     "name: Doc\nfields:\n  - name: kind\n    type: enum\n",
			wantLine: 3,
			wantMsg:  "enum fields require values",
		},
		{
			name:     "duplicate enum value",
			text:     "name: Doc\nfields:\n  - name: kind\n    type: enum\n    values: [a, a]\n",
			wantLine: 5,
			wantMsg:  `duplicate enum value "a"`,
		},
		{
			name:     "values on string",
			text:     "name: Doc\nfields:\n  - name: kind\n    type: string\n    values: [a]\n",
			wantLine: 5,
			wantMsg:  "only allowed on enum",
		},
		{
			name:     "object without fields",
			text:     "name: Doc\nfields:\n  - name: who\n    type: object\n",
			wantLine: 3,
			wantMsg:  "require a fields list",
		},
		{
			name:     "array without items",
			text:     "name: Doc\nfields:\n  - name: tags\n    type: array\n",
			wantLine: 3,
			wantMsg:  "array fields require items",
		},
		{
			name:     "named items",
			text:     "name: Doc\nfields:\n  - name: tags\n    type: array\n    items:\n      name: tag\n      type: string\n",
			wantLine: 6,
			wantMsg:  "must not have a name",
		},
		{
			name:     "nested error path",
			text:     "name: Doc\nfields:\n  - name: who\n    type: object\n    fields:\n      - name: age\n        type: years\n",
			wantLine: 6,
			wantMsg:  `field "who.age"`,
		},
		{
			name:     "bad optional",
			text:     "name: Doc\nfields:\n  - name: a\n    type: string\n    optional: maybe\n",
			wantLine: 5,
			wantMsg:  "optional must be true or false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse(tt.text)
			require.Error(t, err)
			assert.Nil(t, def)
			assert.True(t, errors.Is(err, ErrParse), "error should match ErrParse: %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, pe.Line, "line for %v", err)
			}
		})
	}
}

func TestParse_CodeIsNotExecuted(t *testing.T) {
	source := "from pydantic import BaseModel\n\nclass Document(BaseModel):\n    title: str\n"
	_, err := Parse(source)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestDefinition_JSONSchema(t *testing.T) {
	def, err := Parse(`
name: Person
description: A person
fields:
  - name: zname
    type: string
  - name: age
    type: integer
    optional: true
  - name: born
    type: date
  - name: role
    type: enum
    values: [admin, user]
    optional: true
  - name: address
    type: object
    fields:
      - name: city
        type: string
`)
	require.NoError(t, err)

	raw := def.JSONSchema()
	require.NotEmpty(t, raw)

	// Property order follows declaration order.
	s := string(raw)
	assert.Less(t, strings.Index(s, `"zname"`), strings.Index(s, `"age"`))
	assert.Less(t, strings.Index(s, `"age"`), strings.Index(s, `"born"`))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.Equal(t, []any{"zname", "age", "born", "role", "address"}, doc["required"])

	props := doc["properties"].(map[string]any)
	age := props["age"].(map[string]any)
	assert.Equal(t, []any{"integer", "null"}, age["type"])
	born := props["born"].(map[string]any)
	assert.Equal(t, "date", born["format"])
	role := props["role"].(map[string]any)
	assert.Equal(t, []any{"admin", "user", nil}, role["enum"])

	wrapped, err := def.ResponseFormatSchema()
	require.NoError(t, err)
	var w map[string]any
	require.NoError(t, json.Unmarshal(wrapped, &w))
	assert.Equal(t, "Person", w["name"])
	assert.Equal(t, true, w["strict"])
	assert.NotNil(t, w["schema"])
}

func TestDefinition_Validate(t *testing.T) {
	def, err := Parse(DefaultText)
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "valid", data: `{"title":"Report","content":["a","b"]}`},
		{name: "empty content", data: `{"title":"Report","content":[]}`},
		{name: "missing title", data: `{"content":[]}`, wantErr: true},
		{name: "extra key", data: `{"title":"x","content":[],"extra":1}`, wantErr: true},
		{name: "wrong type", data: `{"title":1,"content":[]}`, wantErr: true},
		{name: "not json", data: `{"title":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := def.Validate(json.RawMessage(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefinition_ValidateOptional(t *testing.T) {
	def, err := Parse("name: Doc\nfields:\n  - name: note\n    type: string\n    optional: true\n  - name: n\n    type: number\n")
	require.NoError(t, err)

	assert.NoError(t, def.Validate(json.RawMessage(`{"note":null,"n":1.5}`)))
	assert.NoError(t, def.Validate(json.RawMessage(`{"note":"hi","n":2}`)))
	assert.Error(t, def.Validate(json.RawMessage(`{"note":"hi","n":null}`)))
}

func TestParse_DuplicateKeys(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
		path string
	}{
		{
			name: "document level",
			text: "name: A\nname: B\nfields:\n  - name: x\n    type: string\n",
			line: 2,
		},
		{
			name: "field level",
			text: "name: A\nfields:\n  - name: x\n    type: string\n    type: integer\n",
			line: 5,
			path: "x",
		},
		{
			name: "array items",
			text: "name: A\nfields:\n  - name: xs\n    type: array\n    items:\n      type: string\n      type: number\n",
			line: 7,
			path: "xs[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.path, pe.Path)
			assert.Contains(t, pe.Msg, "duplicate key")
		})
	}
}

func TestDefinition_ValidateLargeIntegers(t *testing.T) {
	def, err := Parse("name: Counter\nfields:\n  - name: n\n    type: integer\n")
	require.NoError(t, err)

	assert.NoError(t, def.Validate(json.RawMessage(`{"n": 9007199254740993}`)))
	assert.Error(t, def.Validate(json.RawMessage(`{"n": 1.5}`)))
	assert.Error(t, def.Validate(json.RawMessage(`{"n": 1`)))
}
