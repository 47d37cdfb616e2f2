package prompts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("Hello {{.Name}}, {{ .Count }} items, {{.Doc.Title}} {{.Name}}")
	want := []string{"Count", "Doc.Title", "Name"}
	if len(got) != len(want) {
		t.Fatalf("ExtractVariables() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExtractVariables()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolver_Embedded(t *testing.T) {
	r := NewResolver("", nil)
	r.Register(EmbeddedPrompt{Key: "test.user", Text: "Pages: {{.PageCount}}"})

	p, err := r.Resolve("test.user")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.IsOverride {
		t.Error("expected embedded prompt")
	}
	if p.Hash != HashText("Pages: {{.PageCount}}") {
		t.Errorf("unexpected hash %s", p.Hash)
	}
	if len(p.Variables) != 1 || p.Variables[0] != "PageCount" {
		t.Errorf("Variables = %v", p.Variables)
	}

	out, err := p.Render(struct{ PageCount int }{3})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "Pages: 3" {
		t.Errorf("Render() = %q", out)
	}

	if _, err := r.Resolve("missing.key"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := r.Resolve("../etc/passwd"); err == nil {
		t.Error("expected error for invalid key")
	}
}

func TestResolver_Override(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil)
	r.Register(EmbeddedPrompt{Key: "test.system", Text: "default"})

	if err := os.WriteFile(filepath.Join(dir, "test.system.tmpl"), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := r.Resolve("test.system")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.IsOverride || p.Text != "custom" {
		t.Errorf("expected override, got %+v", p)
	}

	embedded, ok := r.GetEmbedded("test.system")
	if !ok || embedded.Text != "default" {
		t.Errorf("GetEmbedded() = %+v, %v", embedded, ok)
	}

	// Blank override files fall back to the default.
	if err := os.WriteFile(filepath.Join(dir, "test.system.tmpl"), []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, _ = r.Resolve("test.system")
	if p.IsOverride {
		t.Error("blank override should be ignored")
	}
}

func TestResolver_AllEmbeddedSorted(t *testing.T) {
	r := NewResolver("", nil)
	r.Register(EmbeddedPrompt{Key: "b.one", Text: "b"})
	r.Register(EmbeddedPrompt{Key: "a.one", Text: "a"})

	all := r.AllEmbedded()
	if len(all) != 2 || all[0].Key != "a.one" {
		t.Errorf("AllEmbedded() = %+v", all)
	}
}

func TestRender_MissingKey(t *testing.T) {
	p := &ResolvedPrompt{Key: "k", Text: "{{.Missing}}"}
	if _, err := p.Render(map[string]any{}); err == nil {
		t.Error("expected error for missing key")
	}
}
