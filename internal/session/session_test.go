package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/sift/internal/render/rendertest"
	"github.com/jackzampolin/sift/internal/schema"
)

type fakeGenerator struct {
	text  string
	err   error
	block chan struct{}

	mu     sync.Mutex
	images [][]byte
}

func (g *fakeGenerator) Propose(ctx context.Context, images [][]byte) (string, error) {
	g.mu.Lock()
	g.images = images
	g.mu.Unlock()
	if g.block != nil {
		<-g.block
	}
	return g.text, g.err
}

type fakeExtractor struct {
	data json.RawMessage
	err  error

	images [][]byte
	def    *schema.Definition
}

func (e *fakeExtractor) Extract(ctx context.Context, images [][]byte, def *schema.Definition) (json.RawMessage, error) {
	e.images = images
	e.def = def
	return e.data, e.err
}

func newTestSession(t *testing.T, pages int) (*Session, *fakeGenerator, *fakeExtractor) {
	t.Helper()
	gen := &fakeGenerator{text: "name: Generated\nfields:\n  - name: a\n    type: string\n"}
	ext := &fakeExtractor{data: json.RawMessage(`{"title": "X", "content": ["a", "b"]}`)}
	s := New(Config{
		ID:        "test",
		Renderer:  &rendertest.Renderer{TotalPages: pages},
		Generator: gen,
		Extractor: ext,
	})
	return s, gen, ext
}

func ingest(t *testing.T, s *Session, pages int) Update {
	t.Helper()
	u, err := s.Ingest(context.Background(), "doc.pdf", rendertest.BlankPDF(pages))
	require.NoError(t, err)
	return u
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, schema.DefaultText, s.SchemaText())
	assert.Nil(t, s.Data())
	assert.Equal(t, 0, s.PageCount())

	v := s.View()
	assert.Nil(t, v.File)
	assert.Empty(t, v.Pages)
	assert.Empty(t, v.Selected)
}

func TestIngest_WithinLimit(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("%d pages", n), func(t *testing.T) {
			s, _, _ := newTestSession(t, n)
			u := ingest(t, s, n)

			assert.True(t, u.Changed)
			assert.True(t, u.Redisplay)
			assert.Empty(t, u.Warnings)
			assert.Equal(t, n, s.PageCount())
			assert.Empty(t, s.Selected())
		})
	}
}

func TestIngest_TruncatesLongDocuments(t *testing.T) {
	s, _, _ := newTestSession(t, 14)
	u := ingest(t, s, 14)

	assert.Equal(t, MaxPages, s.PageCount())
	require.Len(t, u.Warnings, 1)
	assert.Contains(t, u.Warnings[0], "14 pages")
	assert.Contains(t, u.Warnings[0], "first 10")

	v := s.View()
	assert.Equal(t, 14, v.TotalPages)
	assert.Equal(t, u.Warnings, v.Warnings)
}

func TestIngest_RendererReturningTooManyPagesIsCapped(t *testing.T) {
	s := New(Config{Renderer: &overEagerRenderer{pages: 12}})
	u, err := s.Ingest(context.Background(), "doc.pdf", rendertest.BlankPDF(12))
	require.NoError(t, err)
	assert.Equal(t, MaxPages, s.PageCount())
	assert.Len(t, u.Warnings, 1)
}

func TestIngest_Failures(t *testing.T) {
	s, _, _ := newTestSession(t, 2)
	ingest(t, s, 2)
	_, _ = s.ToggleSelection(1)
	_, err := s.ExtractData(context.Background())
	require.NoError(t, err)
	before := s.View()

	t.Run("not a pdf", func(t *testing.T) {
		_, err := s.Ingest(context.Background(), "notes.txt", []byte("hello"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIngest)
		assert.False(t, errors.Is(err, ErrRender))
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		_, err := s.Ingest(context.Background(), "doc.pdf", []byte("%PDF-1.4\ngarbage"))
		assert.ErrorIs(t, err, ErrIngest)
	})

	t.Run("renderer failure", func(t *testing.T) {
		s.renderer = &rendertest.Renderer{Err: errors.New("mupdf: cannot open document")}
		_, err := s.Ingest(context.Background(), "doc.pdf", rendertest.BlankPDF(2))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIngest)
		assert.ErrorIs(t, err, ErrRender)
	})

	t.Run("renderer returns nothing", func(t *testing.T) {
		s.renderer = emptyRenderer{}
		var err error
		require.NotPanics(t, func() {
			_, err = s.Ingest(context.Background(), "doc.pdf", rendertest.BlankPDF(2))
		})
		assert.ErrorIs(t, err, ErrIngest)
		assert.ErrorIs(t, err, ErrRender)
	})

	after := s.View()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Selected, after.Selected)
	assert.Equal(t, before.Data, after.Data)
	assert.Len(t, after.Pages, 2)
}

func TestIngest_ResetsDownstreamButKeepsSchema(t *testing.T) {
	s, _, _ := newTestSession(t, 3)
	ingest(t, s, 3)
	_, _ = s.SelectAll(true)
	s.EditSchema("name: Custom\nfields:\n  - name: title\n    type: string\n  - name: content\n    type: array\n    items:\n      type: string\n")
	_, err := s.ExtractData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.Data())

	ingest(t, s, 3)
	assert.Nil(t, s.Data())
	assert.Empty(t, s.Selected())
	assert.Contains(t, s.SchemaText(), "name: Custom")
}

func TestToggleSelection_Involution(t *testing.T) {
	s, _, _ := newTestSession(t, 4)
	ingest(t, s, 4)
	_, _ = s.ToggleSelection(2)

	for i := 0; i < 4; i++ {
		before := s.Selected()
		u, err := s.ToggleSelection(i)
		require.NoError(t, err)
		assert.True(t, u.Changed)
		assert.False(t, u.Redisplay)
		_, err = s.ToggleSelection(i)
		require.NoError(t, err)
		assert.Equal(t, before, s.Selected(), "index %d", i)
	}
}

func TestToggleSelection_Invalid(t *testing.T) {
	s, _, _ := newTestSession(t, 2)
	_, err := s.ToggleSelection(0)
	assert.ErrorIs(t, err, ErrNoPages)

	ingest(t, s, 2)
	for _, i := range []int{-1, 2, 100} {
		_, err := s.ToggleSelection(i)
		assert.ErrorIs(t, err, ErrInvalidPage)
	}
	assert.Empty(t, s.Selected())
}

func TestSelectAll(t *testing.T) {
	s, _, _ := newTestSession(t, 3)
	_, err := s.SelectAll(true)
	assert.ErrorIs(t, err, ErrNoPages)

	ingest(t, s, 3)

	u, err := s.SelectAll(true)
	require.NoError(t, err)
	assert.True(t, u.Changed)
	assert.Equal(t, []int{0, 1, 2}, s.Selected())
	assert.True(t, s.View().AllSelected)

	u, err = s.SelectAll(false)
	require.NoError(t, err)
	assert.True(t, u.Changed)
	assert.Empty(t, s.Selected())

	_, _ = s.ToggleSelection(0)
	_, _ = s.ToggleSelection(2)
	u, err = s.SelectAll(false)
	require.NoError(t, err)
	assert.False(t, u.Changed)
	assert.Equal(t, []int{0, 2}, s.Selected(), "partial selection survives unchecking select-all")

	u, err = s.SelectAll(true)
	require.NoError(t, err)
	assert.True(t, u.Changed)
	u, err = s.SelectAll(true)
	require.NoError(t, err)
	assert.False(t, u.Changed)
}

func TestGenerateSchema(t *testing.T) {
	s, gen, _ := newTestSession(t, 3)
	ingest(t, s, 3)

	_, err := s.GenerateSchema(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)

	s.EditSchema("unsaved edit")
	_, _ = s.ToggleSelection(2)
	_, _ = s.ToggleSelection(0)

	u, err := s.GenerateSchema(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Changed)
	assert.True(t, u.Redisplay)
	assert.Equal(t, gen.text, s.SchemaText())

	p0, _ := s.Page(0)
	p2, _ := s.Page(2)
	assert.Equal(t, [][]byte{p0.Image, p2.Image}, gen.images)
}

func TestGenerateSchema_Failure(t *testing.T) {
	s, gen, _ := newTestSession(t, 2)
	ingest(t, s, 2)
	_, _ = s.SelectAll(true)
	s.EditSchema("mine")
	gen.err = errors.New("rate limited")

	_, err := s.GenerateSchema(context.Background())
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, "mine", s.SchemaText())
}

func TestGenerateSchema_NoPages(t *testing.T) {
	s, _, _ := newTestSession(t, 2)
	_, err := s.GenerateSchema(context.Background())
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestEditSchema(t *testing.T) {
	s := New(Config{})
	u := s.EditSchema("not: [valid")
	assert.True(t, u.Changed)
	assert.False(t, u.Redisplay)
	assert.Equal(t, "not: [valid", s.SchemaText())

	u = s.EditSchema("not: [valid")
	assert.False(t, u.Changed)
}

func TestExtractData(t *testing.T) {
	s, _, ext := newTestSession(t, 3)
	ingest(t, s, 3)
	_, _ = s.ToggleSelection(2)
	_, _ = s.ToggleSelection(1)

	u, err := s.ExtractData(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Changed)
	assert.Equal(t, `{"title":"X","content":["a","b"]}`, string(s.Data()))
	assert.Equal(t, "Document", ext.def.Name)

	p1, _ := s.Page(1)
	p2, _ := s.Page(2)
	assert.Equal(t, [][]byte{p1.Image, p2.Image}, ext.images)
}

func TestExtractData_Preconditions(t *testing.T) {
	s, _, _ := newTestSession(t, 2)
	_, err := s.ExtractData(context.Background())
	assert.ErrorIs(t, err, ErrNoPages)

	ingest(t, s, 2)
	_, err = s.ExtractData(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)

	_, _ = s.ToggleSelection(0)
	s.EditSchema("  \n")
	_, err = s.ExtractData(context.Background())
	assert.ErrorIs(t, err, ErrEmptySchema)
}

func TestExtractData_MalformedSchema(t *testing.T) {
	s, _, ext := newTestSession(t, 2)
	ingest(t, s, 2)
	_, _ = s.ToggleSelection(0)
	s.EditSchema("class Document(BaseModel):\n    title: str\n")

	_, err := s.ExtractData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaParse)
	assert.Nil(t, s.Data())
	assert.Nil(t, ext.def, "extractor must not be called")
}

func TestExtractData_FailureKeepsPriorData(t *testing.T) {
	s, _, ext := newTestSession(t, 2)
	ingest(t, s, 2)
	_, _ = s.ToggleSelection(0)
	_, err := s.ExtractData(context.Background())
	require.NoError(t, err)
	prior := s.Data()

	ext.err = errors.New("model output does not match schema")
	_, err = s.ExtractData(context.Background())
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, prior, s.Data())

	ext.err = nil
	ext.data = json.RawMessage(`{"title":`)
	_, err = s.ExtractData(context.Background())
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, prior, s.Data())
}

func TestExportData(t *testing.T) {
	s, _, _ := newTestSession(t, 1)
	_, err := s.ExportData()
	assert.ErrorIs(t, err, ErrNoData)

	ingest(t, s, 1)
	_, _ = s.ToggleSelection(0)
	_, err = s.ExtractData(context.Background())
	require.NoError(t, err)

	out, err := s.ExportData()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"title\": \"X\",\n  \"content\": [\n    \"a\",\n    \"b\"\n  ]\n}", string(out))
}

func TestFormatJSON_KeepsKeyOrder(t *testing.T) {
	out, err := FormatJSON(json.RawMessage(`{"z":1,"a":{"y":null,"b":true}}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": {\n    \"y\": null,\n    \"b\": true\n  }\n}", string(out))
}

func TestBusy(t *testing.T) {
	s, gen, _ := newTestSession(t, 2)
	ingest(t, s, 2)
	_, _ = s.SelectAll(true)

	gen.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.GenerateSchema(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return s.View().Busy == "generate" }, timeout, tick)

	_, err := s.ExtractData(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.GenerateSchema(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Ingest(context.Background(), "doc.pdf", rendertest.BlankPDF(1))
	assert.ErrorIs(t, err, ErrBusy)

	// Reads and selection edits stay available while a call is in flight.
	_, err = s.ToggleSelection(0)
	assert.NoError(t, err)

	close(gen.block)
	require.NoError(t, <-done)
	assert.Empty(t, s.View().Busy)

	_, _ = s.ToggleSelection(0)
	_, err = s.ExtractData(context.Background())
	assert.NoError(t, err)
}

func TestVersionMonotonic(t *testing.T) {
	s, _, _ := newTestSession(t, 2)
	var last uint64
	steps := []func() Update{
		func() Update { return ingest(t, s, 2) },
		func() Update { u, _ := s.ToggleSelection(1); return u },
		func() Update { u, _ := s.SelectAll(true); return u },
		func() Update { return s.EditSchema(schema.DefaultText + "\n") },
		func() Update { u, _ := s.ExtractData(context.Background()); return u },
	}
	for i, step := range steps {
		u := step()
		assert.True(t, u.Changed, "step %d", i)
		assert.Greater(t, u.Version, last, "step %d", i)
		last = u.Version
	}
	assert.Equal(t, last, s.Version())
}

func TestViewAndSummary(t *testing.T) {
	s, _, _ := newTestSession(t, 3)
	ingest(t, s, 3)
	_, _ = s.ToggleSelection(1)

	v := s.View()
	require.NotNil(t, v.File)
	assert.Equal(t, "doc.pdf", v.File.Name)
	require.Len(t, v.Pages, 3)
	assert.True(t, v.Pages[1].Selected)
	assert.False(t, v.Pages[0].Selected)
	assert.Equal(t, []int{1}, v.Selected)
	assert.False(t, v.AllSelected)

	sum := s.Summary()
	assert.Equal(t, "doc.pdf", sum.File)
	assert.Equal(t, 3, sum.Pages)
	assert.Equal(t, 1, sum.Selected)
	assert.False(t, sum.HasData)

	_, err := s.Page(3)
	assert.ErrorIs(t, err, ErrInvalidPage)
	p, err := s.Page(0)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(p.Image, rendertest.PNG(0)))
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	s, _, _ := newTestSession(t, 12)
	ingest(t, s, 12)
	_, err := s.SelectAll(true)
	require.NoError(t, err)
	_, err = s.ExtractData(context.Background())
	require.NoError(t, err)

	data := s.Data()
	require.NotEmpty(t, data)
	data[0] = 'X'

	v := s.View()
	require.Len(t, v.Warnings, 1)
	v.Warnings[0] = "changed"
	v.Data[0] = 'Y'

	again := s.View()
	assert.Equal(t, byte('{'), s.Data()[0])
	assert.Equal(t, byte('{'), again.Data[0])
	assert.Contains(t, again.Warnings[0], "12 pages")
}
