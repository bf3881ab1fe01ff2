package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/markdown"
	"github.com/diagramify/diagramify/internal/render"
	"github.com/diagramify/diagramify/internal/walker"
)

// mockGenerator returns a diagram per section title and fails titles
// listed in failures.
type mockGenerator struct {
	mu       sync.Mutex
	calls    int
	failures map[string]error
}

func (m *mockGenerator) Generate(_ context.Context, req generate.Request) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	title, _, _ := strings.Cut(req.Content, "\n")
	if err := m.failures[title]; err != nil {
		return "", err
	}
	return fmt.Sprintf("graph TD\n%s-->Done", strings.ReplaceAll(title, " ", "")), nil
}

func (m *mockGenerator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockEngine struct{}

func (mockEngine) Name() string { return "mock" }

func (mockEngine) Render(_ context.Context, id, markup string, format render.Format) ([]byte, error) {
	return []byte(`<svg viewBox="0 0 10 10"></svg>`), nil
}

func jobsFor(titles ...string) []Job {
	jobs := make([]Job, len(titles))
	for i, title := range titles {
		jobs[i] = Job{File: "doc.md", Index: i, Section: markdown.Section{Title: title, Prompt: markdown.DefaultPrompt}}
	}
	return jobs
}

func TestBatcherProcess(t *testing.T) {
	gen := &mockGenerator{failures: map[string]error{"Bad": errors.New("upstream down")}}
	var progressCalls atomic.Int64
	b := NewBatcher(2, gen, func(processed, total int, label string) {
		progressCalls.Add(1)
	})

	results := b.Process(context.Background(), jobsFor("One", "Bad", "Three"))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Diagram != "graph TD\nOne-->Done" || results[2].Diagram != "graph TD\nThree-->Done" {
		t.Errorf("results out of order: %+v", results)
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "doc.md#2 Bad") {
		t.Errorf("expected labelled error, got %v", results[1].Err)
	}
	if progressCalls.Load() != 3 {
		t.Errorf("expected 3 progress calls, got %d", progressCalls.Load())
	}
}

func TestBatcherStopsOnFatalError(t *testing.T) {
	gen := &mockGenerator{failures: map[string]error{
		"One": fmt.Errorf("generating diagram: %w", &llm.StatusError{Provider: "openai", StatusCode: 401}),
	}}
	b := NewBatcher(1, gen, nil)

	results := b.Process(context.Background(), jobsFor("One", "Two", "Three"))
	for i, r := range results {
		if r.Err == nil {
			t.Errorf("job %d: expected error after fatal failure", i)
		}
	}
	if gen.count() != 1 {
		t.Errorf("expected a single provider call, got %d", gen.count())
	}
}

func TestFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{llm.ErrNotConfigured, true},
		{&llm.StatusError{StatusCode: 429}, true},
		{&llm.StatusError{StatusCode: 403}, true},
		{&llm.StatusError{StatusCode: 500}, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := fatal(tt.err); got != tt.want {
			t.Errorf("fatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	state, err := LoadState(dir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !state.IsFileChanged("a.md", "h1") {
		t.Error("unknown file should count as changed")
	}
	state.FileHashes["a.md"] = "h1"
	if err := state.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadState(dir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.IsFileChanged("a.md", "h1") || !loaded.IsFileChanged("a.md", "h2") {
		t.Error("hash comparison mismatch after reload")
	}
}

func writeDocs(t *testing.T, docs map[string]string) (string, []walker.FileInfo) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := walker.Walk(walker.Config{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return dir, files
}

func TestPipelineRun(t *testing.T) {
	_, files := writeDocs(t, map[string]string{
		"guide.md": "# Getting Started\nsteps\n# Deploy\nship it",
	})
	out := t.TempDir()
	gen := &mockGenerator{}
	p := NewPipeline(gen, mockEngine{}, nil, Options{
		OutDir:      out,
		Concurrency: 2,
		Formats:     []render.Format{render.FormatSVG},
		Outline:     true,
	}, nil)

	result, err := p.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesProcessed != 1 || result.Sections != 2 || result.SectionsFailed != 0 {
		t.Errorf("unexpected result %+v", result)
	}

	for _, name := range []string{
		"guide/01_getting_started_diagram.mmd",
		"guide/01_getting_started_diagram.svg",
		"guide/02_deploy_diagram.mmd",
		"guide/outline.mmd",
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	data, _ := os.ReadFile(filepath.Join(out, "guide/02_deploy_diagram.mmd"))
	if string(data) != "graph TD\nDeploy-->Done\n" {
		t.Errorf("unexpected markup %q", data)
	}
	svg, _ := os.ReadFile(filepath.Join(out, "guide/01_getting_started_diagram.svg"))
	if !strings.Contains(string(svg), "preserveAspectRatio") {
		t.Errorf("expected post-processed svg, got %q", svg)
	}

	// A second run skips the unchanged document.
	result, err = p.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.FilesSkipped != 1 || gen.count() != 2 {
		t.Errorf("expected unchanged document to be skipped, got %+v after %d calls", result, gen.count())
	}
}

func TestPipelineKeepsFailedFilesPending(t *testing.T) {
	_, files := writeDocs(t, map[string]string{"a.md": "# Good\nx\n# Bad\ny"})
	out := t.TempDir()
	gen := &mockGenerator{failures: map[string]error{"Bad": errors.New("invalid")}}
	p := NewPipeline(gen, nil, nil, Options{OutDir: out}, nil)

	result, err := p.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesProcessed != 0 || result.SectionsFailed != 1 || len(result.Errors) != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	state, _ := LoadState(out)
	if _, ok := state.FileHashes["a.md"]; ok {
		t.Error("a document with failed sections must be retried next run")
	}
}

func TestPipelineNeedsEngineForFormats(t *testing.T) {
	p := NewPipeline(&mockGenerator{}, nil, nil, Options{OutDir: t.TempDir(), Formats: []render.Format{render.FormatPNG}}, nil)
	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Error("expected error without an engine")
	}
}

func TestPipelineDryRun(t *testing.T) {
	_, files := writeDocs(t, map[string]string{
		"a.md": "# One\nalpha\n# Two\nbeta",
		"b.md": "# Three\ngamma",
	})
	gen := &mockGenerator{}
	p := NewPipeline(gen, nil, nil, Options{Model: "gpt-4o"}, nil)

	est, err := p.DryRun(files)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if est.Files != 2 || est.Sections != 3 {
		t.Errorf("unexpected estimate %+v", est)
	}
	if est.InputTokens == 0 || est.OutputTokens != 3*estimatedOutputTokens || est.EstimatedCost <= 0 {
		t.Errorf("expected token and cost estimate, got %+v", est)
	}
	if gen.count() != 0 {
		t.Error("dry run must not call the provider")
	}
}
