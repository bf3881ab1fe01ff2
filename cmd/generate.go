package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diagramify/diagramify/internal/batch"
	"github.com/diagramify/diagramify/internal/config"
	"github.com/diagramify/diagramify/internal/progress"
	"github.com/diagramify/diagramify/internal/render"
	"github.com/diagramify/diagramify/internal/walker"
)

var generateCmd = &cobra.Command{
	Use:   "generate [glob...]",
	Short: "Generate diagrams for every section of your markdown documents",
	Long: `Finds markdown documents (every *.md under the current directory, or the
files matching the given glob patterns), splits them at top-level headings and
writes one Mermaid diagram per section to the output directory. Documents that
did not change since the last run are skipped.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("out", "diagrams", "output directory")
	generateCmd.Flags().StringSlice("format", nil, "also render each diagram as svg, png, jpg or pdf (repeatable)")
	generateCmd.Flags().Bool("outline", false, "also write an outline diagram per document")
	generateCmd.Flags().Bool("force", false, "diagram unchanged documents too")
	generateCmd.Flags().Bool("dry-run", false, "estimate costs without making API calls")
	generateCmd.Flags().Int("concurrency", 4, "max parallel LLM calls")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	outDir, _ := cmd.Flags().GetString("out")
	formatNames, _ := cmd.Flags().GetStringSlice("format")
	outline, _ := cmd.Flags().GetBool("outline")
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	var formats []render.Format
	for _, name := range formatNames {
		f, err := render.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	var files []walker.FileInfo
	if len(args) > 0 {
		files, err = walker.Glob(rootDir, args, 0)
	} else {
		files, err = walker.Walk(walker.Config{
			RootDir: rootDir,
			Exclude: []string{filepath.ToSlash(filepath.Clean(outDir)) + "/**"},
		})
	}
	if err != nil {
		return fmt.Errorf("finding documents: %w", err)
	}
	logger.Debug("documents found", "count", len(files), "root", rootDir)

	if len(files) == 0 {
		fmt.Println("No markdown documents found.")
		return nil
	}

	var engine render.Engine
	if len(formats) > 0 {
		engine = newEngine(cfg)
	}

	pipeline := batch.NewPipeline(newGenerator(cfg, logger), engine, newBuilder(cfg), batch.Options{
		OutDir:      outDir,
		Concurrency: concurrency,
		Model:       cfg.Model,
		Formats:     formats,
		Outline:     outline,
		Force:       force,
	}, logger)

	if dryRun {
		estimate, err := pipeline.DryRun(files)
		if err != nil {
			return fmt.Errorf("dry run failed: %w", err)
		}
		printCostEstimate(estimate, cfg)
		return nil
	}

	reporter := progress.NewReporter()
	var (
		mu    sync.Mutex
		total int
	)
	pipeline.SetProgressFunc(func(processed, n int, label string) {
		mu.Lock()
		defer mu.Unlock()
		if total == 0 {
			total = n
			reporter.Start(n)
		}
		reporter.Update(processed, label)
	})

	result, err := pipeline.Run(ctx, files)
	if total > 0 {
		reporter.Finish()
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Diagram generation complete!")
	fmt.Printf("  Documents diagrammed: %d\n", result.FilesProcessed)
	fmt.Printf("  Documents skipped:    %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Sections:             %d (%d failed)\n", result.Sections, result.SectionsFailed)
	fmt.Printf("  Files written:        %d\n", len(result.Written))
	fmt.Printf("  Duration:             %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Output:               %s\n", outDir)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nWarnings (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
	}
	return nil
}

// printCostEstimate displays cost estimate results.
func printCostEstimate(estimate *batch.CostEstimate, cfg *config.Config) {
	fmt.Println("Cost Estimate (dry run)")
	fmt.Println("=======================")
	fmt.Printf("  Documents:           %d\n", estimate.Files)
	fmt.Printf("  Sections:            %d\n", estimate.Sections)
	fmt.Printf("  Estimated tokens:    %d input, %d output\n", estimate.InputTokens, estimate.OutputTokens)
	if estimate.EstimatedCost > 0 {
		fmt.Printf("  Estimated total:     $%.4f\n", estimate.EstimatedCost)
	} else {
		fmt.Printf("  Estimated total:     unknown (no pricing for %s)\n", cfg.Model)
	}
	fmt.Printf("  Provider:            %s\n", cfg.Provider)
	fmt.Printf("  Model:               %s\n", cfg.Model)
}
