package render_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/sift/internal/render"
	"github.com/jackzampolin/sift/internal/render/rendertest"
)

func TestValidate(t *testing.T) {
	pdf := rendertest.BlankPDF(3)

	tests := []struct {
		name    string
		file    string
		data    []byte
		maxSize int64
		want    int
		wantErr bool
	}{
		{name: "valid", file: "doc.pdf", data: pdf, want: 3},
		{name: "upper case extension", file: "DOC.PDF", data: pdf, want: 3},
		{name: "wrong extension", file: "doc.png", data: pdf, wantErr: true},
		{name: "empty", file: "doc.pdf", data: nil, wantErr: true},
		{name: "too large", file: "doc.pdf", data: pdf, maxSize: 10, wantErr: true},
		{name: "not a pdf", file: "doc.pdf", data: []byte("hello world"), wantErr: true},
		{name: "truncated", file: "doc.pdf", data: []byte("%PDF-1.4\n1 0 obj\n"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := render.Validate(tt.file, tt.data, tt.maxSize)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, render.ErrInvalidPDF))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestNew(t *testing.T) {
	r, err := render.New(render.Config{})
	require.NoError(t, err)
	assert.IsType(t, &render.FitzRenderer{}, r)

	r, err = render.New(render.Config{Backend: "PDFTOPPM", DPI: 72})
	require.NoError(t, err)
	assert.IsType(t, &render.PdftoppmRenderer{}, r)

	_, err = render.New(render.Config{Backend: "ghostscript"})
	assert.Error(t, err)
}

func TestFitzRenderer(t *testing.T) {
	r, err := render.New(render.Config{Backend: render.BackendFitz, DPI: 72})
	require.NoError(t, err)

	res, err := r.Render(context.Background(), rendertest.BlankPDF(12), 10)
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalPages)
	require.Len(t, res.Pages, 10)

	for i, p := range res.Pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, "image/png", p.MIMEType)
		img, err := png.Decode(bytes.NewReader(p.Image))
		require.NoError(t, err)
		// 200x100pt at 72 DPI
		assert.Equal(t, 200, img.Bounds().Dx())
		assert.Equal(t, 100, img.Bounds().Dy())
	}
}

func TestFitzRenderer_Garbage(t *testing.T) {
	r, err := render.New(render.Config{Backend: render.BackendFitz})
	require.NoError(t, err)

	_, err = r.Render(context.Background(), []byte("not a pdf"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, render.ErrRender))
}

func TestFitzRenderer_Canceled(t *testing.T) {
	r, err := render.New(render.Config{Backend: render.BackendFitz})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, rendertest.BlankPDF(2), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPdftoppmRenderer(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed")
	}

	r, err := render.New(render.Config{Backend: render.BackendPdftoppm, DPI: 72})
	require.NoError(t, err)

	res, err := r.Render(context.Background(), rendertest.BlankPDF(3), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, 0, res.Pages[0].Index)
	assert.Equal(t, 1, res.Pages[1].Index)
	assert.Greater(t, res.Pages[0].Width, 0)
}

func TestFakeRenderer(t *testing.T) {
	fake := &rendertest.Renderer{TotalPages: 15}
	res, err := fake.Render(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 10)
	assert.Equal(t, 15, res.TotalPages)
	assert.NotEqual(t, res.Pages[0].Image, res.Pages[1].Image)
	assert.Equal(t, 1, fake.Calls())
}
