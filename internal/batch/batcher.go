// Package batch diagrams every section of a set of markdown documents and
// writes the results to an output directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/markdown"
)

// ProgressFunc is called after each job finishes.
type ProgressFunc func(processed, total int, label string)

// Job is one section to diagram.
type Job struct {
	File    string // relative path of the source document
	Index   int
	Section markdown.Section
}

// Label names the job in progress output.
func (j Job) Label() string {
	return fmt.Sprintf("%s#%d %s", j.File, j.Index+1, j.Section.Title)
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job
	Diagram string
	Err     error
}

// Batcher generates diagrams for jobs concurrently.
type Batcher struct {
	concurrency int
	gen         generate.Generator
	onProgress  ProgressFunc
}

// NewBatcher creates a new Batcher with the given concurrency limit.
func NewBatcher(concurrency int, gen generate.Generator, onProgress ProgressFunc) *Batcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batcher{concurrency: concurrency, gen: gen, onProgress: onProgress}
}

// Process runs every job and returns results in job order. When the
// provider reports missing credentials, exhausted quota or rejected
// credentials the remaining jobs are skipped.
func (b *Batcher) Process(ctx context.Context, jobs []Job) []JobResult {
	total := len(jobs)
	results := make([]JobResult, total)
	if total == 0 {
		return results
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var tripped atomic.Bool
	var processed atomic.Int64

	progress := func(label string) {
		count := processed.Add(1)
		if b.onProgress != nil {
			b.onProgress(int(count), total, label)
		}
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup
	for i, job := range jobs {
		results[i].Job = job

		if tripped.Load() {
			results[i].Err = fmt.Errorf("%s: skipped after a fatal provider error", job.Label())
			progress(job.Label())
			continue
		}

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			progress(job.Label())
			continue
		case sem <- struct{}{}:
		}
		// The slot may have been freed by the job that cancelled ctx.
		if err := ctx.Err(); err != nil {
			<-sem
			results[i].Err = err
			progress(job.Label())
			continue
		}

		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()

			diagram, err := b.gen.Generate(ctx, generate.Request{
				Content: job.Section.Title + "\n\n" + job.Section.Content,
				Prompt:  job.Section.Prompt,
				Label:   job.Label(),
			})
			if err != nil {
				results[i].Err = fmt.Errorf("%s: %w", job.Label(), err)
				if fatal(err) {
					tripped.Store(true)
					cancel()
				}
			} else {
				results[i].Diagram = diagram
			}
			progress(job.Label())
		}(i, job)
	}

	wg.Wait()
	return results
}

// fatal reports errors that will fail every later request too.
func fatal(err error) bool {
	if errors.Is(err, llm.ErrNotConfigured) {
		return true
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return true
		}
	}
	return false
}
