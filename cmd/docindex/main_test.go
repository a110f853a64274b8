package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/krakend/docsearch-mcp/internal/docset"
	"github.com/krakend/docsearch-mcp/internal/indexing"
	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

const payloadFile = "../../internal/searchindex/testdata/search_index.js"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--color=off"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect", payloadFile)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	for _, want := range []string{
		"is valid",
		"Variable:  documenterSearchIndex",
		"Fragments: 85 (65 page, 20 section)",
		"Pages:     3",
		"Parameter Estimation",
		"Expected Utility Theory",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestInspect_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.js")
	os.WriteFile(path, []byte(`{"docs":[{"page":"x"}]}`), 0644)

	_, err := execute(t, "inspect", path)
	if err == nil {
		t.Fatal("Expected error for malformed payload")
	}
}

func TestPages(t *testing.T) {
	out, err := execute(t, "pages", payloadFile)
	if err != nil {
		t.Fatalf("pages failed: %v", err)
	}
	if !strings.Contains(out, "Home") {
		t.Errorf("Outline missing Home page:\n%s", out)
	}

	out, err = execute(t, "pages", payloadFile, "Home")
	if err != nil {
		t.Fatalf("pages Home failed: %v", err)
	}
	if !strings.Contains(out, "[page]") {
		t.Errorf("Expected page fragment in output:\n%s", out)
	}

	if _, err := execute(t, "pages", payloadFile, "Nope"); err == nil {
		t.Error("Expected error for unknown page")
	}
}

func TestExport_RoundTrip(t *testing.T) {
	original, err := searchindex.LoadFile(payloadFile)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	tests := []struct {
		name         string
		args         []string
		wantPrefix   string
		wantVariable string
	}{
		{name: "json", args: nil, wantPrefix: `{"docs":`},
		{name: "default variable", args: []string{"--js"}, wantPrefix: "var documenterSearchIndex = ", wantVariable: "documenterSearchIndex"},
		{name: "custom variable", args: []string{"--js=searchData"}, wantPrefix: "var searchData = ", wantVariable: "searchData"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "out.js")
			args := append([]string{"export", payloadFile, "-o", outPath}, tt.args...)
			if _, err := execute(t, args...); err != nil {
				t.Fatalf("export failed: %v", err)
			}

			data, err := os.ReadFile(outPath)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !strings.HasPrefix(string(data), tt.wantPrefix) {
				t.Errorf("Output starts with %q, want prefix %q", string(data[:min(40, len(data))]), tt.wantPrefix)
			}

			reloaded, err := searchindex.Load(data)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reloaded.Equal(original) {
				t.Error("Exported payload differs from the original")
			}
			if reloaded.Variable() != tt.wantVariable {
				t.Errorf("Variable() = %q, want %q", reloaded.Variable(), tt.wantVariable)
			}
		})
	}

	if _, err := execute(t, "export", payloadFile, "--js=not valid"); err == nil {
		t.Error("Expected error for invalid variable name")
	}
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteAndClose(t *testing.T) {
	errDiskFull := errors.New("no space left on device")
	encode := func(w io.Writer) error {
		_, err := io.WriteString(w, `{"docs":[]}`)
		return err
	}

	wc := &failingCloser{closeErr: errDiskFull}
	if err := writeAndClose(wc, encode); !errors.Is(err, errDiskFull) {
		t.Errorf("writeAndClose() error = %v, want %v", err, errDiskFull)
	}
	if wc.String() != `{"docs":[]}` {
		t.Errorf("Written = %q", wc.String())
	}

	errEncode := errors.New("encode failed")
	wc = &failingCloser{}
	err := writeAndClose(wc, func(io.Writer) error { return errEncode })
	if !errors.Is(err, errEncode) {
		t.Errorf("writeAndClose() error = %v, want %v", err, errEncode)
	}
	if !wc.closed {
		t.Error("Writer not closed after encode failure")
	}

	wc = &failingCloser{}
	if err := writeAndClose(wc, encode); err != nil {
		t.Errorf("writeAndClose() error = %v", err)
	}
}

func TestBuild(t *testing.T) {
	t.Setenv("DOCSEARCH_DATA_DIR", t.TempDir())
	t.Setenv("DOCSEARCH_CONFIG", "")
	indexDir := filepath.Join(t.TempDir(), "search")

	out, err := execute(t, "build", indexDir, payloadFile, "--base-url", "https://example.org/docs/")
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "search_index") || !strings.Contains(out, "Indexing complete") {
		t.Errorf("Unexpected build output:\n%s", out)
	}

	if v := docset.ReadVersion(indexDir); v != indexing.IndexSchemaVersion {
		t.Errorf("ReadVersion() = %d, want %d", v, indexing.IndexSchemaVersion)
	}

	index, sources, err := docset.OpenDir(indexDir)
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	defer index.Close()

	if len(sources) != 1 || sources[0].Name != "search_index" {
		t.Fatalf("Unexpected sources: %+v", sources)
	}
	if sources[0].BaseURL != "https://example.org/docs/" {
		t.Errorf("BaseURL = %q", sources[0].BaseURL)
	}
	if sources[0].Index.Size() != 85 {
		t.Errorf("Size() = %d, want 85", sources[0].Index.Size())
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "docindex "+version) {
		t.Errorf("Unexpected version output: %s", out)
	}
}

func TestPayloadSources(t *testing.T) {
	got := payloadSources([]string{"docs/stable.js", "dev.json"}, "https://x/")
	if len(got) != 2 || got[0].Name != "stable" || got[1].Name != "dev" {
		t.Errorf("payloadSources() = %+v", got)
	}
	if got[0].Path != "docs/stable.js" || got[0].BaseURL != "https://x/" {
		t.Errorf("payloadSources()[0] = %+v", got[0])
	}
}

func TestColorFlag(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--color=sometimes", "version"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for invalid --color value")
	}
}
