package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/diagramify/diagramify/internal/diagrams"
	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/markdown"
	"github.com/diagramify/diagramify/internal/prompt"
	"github.com/diagramify/diagramify/internal/render"
	"github.com/diagramify/diagramify/internal/walker"
)

// estimatedOutputTokens is the assumed reply size of one diagram request.
const estimatedOutputTokens = 400

// Options configures a Pipeline.
type Options struct {
	OutDir      string
	Concurrency int
	// Model prices the dry-run estimate.
	Model string
	// Formats are rendered next to each .mmd file. They need an engine.
	Formats []render.Format
	// Outline also writes an overview diagram of each document.
	Outline bool
	// Force diagrams documents whose content is unchanged since the last run.
	Force bool
}

// Pipeline turns documents into diagram files.
type Pipeline struct {
	gen        generate.Generator
	engine     render.Engine
	builder    *prompt.Builder
	opts       Options
	logger     *slog.Logger
	onProgress ProgressFunc
}

// NewPipeline creates a pipeline. engine may be nil when opts.Formats is empty.
func NewPipeline(gen generate.Generator, engine render.Engine, builder *prompt.Builder, opts Options, logger *slog.Logger) *Pipeline {
	if builder == nil {
		builder = prompt.NewBuilder(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{gen: gen, engine: engine, builder: builder, opts: opts, logger: logger}
}

// SetProgressFunc sets the callback invoked as sections finish.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// Result summarizes a run.
type Result struct {
	FilesProcessed int
	FilesSkipped   int
	Sections       int
	SectionsFailed int
	Written        []string
	Errors         []error
}

// CostEstimate is the outcome of a dry run.
type CostEstimate struct {
	Files         int
	Sections      int
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
}

type document struct {
	file     walker.FileInfo
	sections []markdown.Section
}

// load reads and splits files, dropping unchanged ones unless forced.
func (p *Pipeline) load(files []walker.FileInfo, state *State) ([]document, int, []error) {
	var (
		docs    []document
		skipped int
		errs    []error
	)
	for _, f := range files {
		if state != nil && !p.opts.Force && !state.IsFileChanged(f.RelPath, f.ContentHash) {
			skipped++
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", f.RelPath, err))
			continue
		}
		sections := markdown.Split(string(data))
		if len(sections) == 0 {
			p.logger.Debug("document has no top-level headings", "file", f.RelPath)
		}
		docs = append(docs, document{file: f, sections: sections})
	}
	return docs, skipped, errs
}

// DryRun estimates the tokens and cost of diagramming files.
func (p *Pipeline) DryRun(files []walker.FileInfo) (*CostEstimate, error) {
	docs, _, errs := p.load(files, nil)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	est := &CostEstimate{Files: len(docs)}
	for _, d := range docs {
		for _, sec := range d.sections {
			pr := p.builder.Build(prompt.Input{Content: sec.Title + "\n\n" + sec.Content, Instruction: sec.Prompt})
			est.Sections++
			est.InputTokens += llm.EstimateTokens(pr.System) + llm.EstimateTokens(pr.User)
			est.OutputTokens += estimatedOutputTokens
		}
	}
	est.EstimatedCost = llm.EstimateCost(p.opts.Model, est.InputTokens, est.OutputTokens)
	return est, nil
}

// Run diagrams every section of the changed files and writes one .mmd file
// per section, plus the configured renders and outlines.
func (p *Pipeline) Run(ctx context.Context, files []walker.FileInfo) (*Result, error) {
	if len(p.opts.Formats) > 0 && p.engine == nil {
		return nil, fmt.Errorf("rendering %v needs a render engine", p.opts.Formats)
	}

	state, err := LoadState(p.opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	docs, skipped, errs := p.load(files, state)
	result := &Result{FilesSkipped: skipped, Errors: errs}

	var jobs []Job
	for _, d := range docs {
		for i, sec := range d.sections {
			jobs = append(jobs, Job{File: d.file.RelPath, Index: i, Section: sec})
		}
	}

	batcher := NewBatcher(p.opts.Concurrency, p.gen, p.onProgress)
	results := batcher.Process(ctx, jobs)

	failed := make(map[string]bool)
	for _, r := range results {
		result.Sections++
		if r.Err != nil {
			result.SectionsFailed++
			result.Errors = append(result.Errors, r.Err)
			failed[r.File] = true
			continue
		}
		written, err := p.writeSection(ctx, r)
		result.Written = append(result.Written, written...)
		if err != nil {
			result.Errors = append(result.Errors, err)
			failed[r.File] = true
		}
	}

	for _, d := range docs {
		if p.opts.Outline && len(d.sections) > 0 {
			path := filepath.Join(p.docDir(d.file.RelPath), "outline.mmd")
			outline := diagrams.Outline(d.file.RelPath, markdown.Titles(d.sections))
			if err := writeFile(path, []byte(outline)); err != nil {
				result.Errors = append(result.Errors, err)
			} else {
				result.Written = append(result.Written, path)
			}
		}
		if !failed[d.file.RelPath] {
			result.FilesProcessed++
			state.FileHashes[d.file.RelPath] = d.file.ContentHash
		}
	}

	if err := state.Save(p.opts.OutDir); err != nil {
		return result, fmt.Errorf("saving state: %w", err)
	}
	return result, nil
}

// docDir is the output directory of one source document.
func (p *Pipeline) docDir(relPath string) string {
	return filepath.Join(p.opts.OutDir, strings.TrimSuffix(relPath, filepath.Ext(relPath)))
}

// writeSection writes the markup of r and its renders. It returns the paths
// written so far.
func (p *Pipeline) writeSection(ctx context.Context, r JobResult) ([]string, error) {
	dir := p.docDir(r.File)
	base := fmt.Sprintf("%02d_%s", r.Index+1, strings.TrimSuffix(render.FileName(r.Section.Title, "mmd"), ".mmd"))

	var written []string
	path := filepath.Join(dir, base+".mmd")
	if err := writeFile(path, []byte(r.Diagram+"\n")); err != nil {
		return written, err
	}
	written = append(written, path)

	for i, format := range p.opts.Formats {
		id := fmt.Sprintf("batch-%d-%d", r.Index, i)
		data, err := render.Export(ctx, p.engine, id, r.Diagram, r.Section.Title, format, p.logger)
		if err != nil {
			return written, fmt.Errorf("%s: rendering %s: %w", r.Label(), format, err)
		}
		path := filepath.Join(dir, base+"."+string(format))
		if err := writeFile(path, data); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
