package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/fsutil"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
	"github.com/vk/lasrgo/internal/stageid"
	"github.com/vk/lasrgo/internal/stages"
)

// Run loads the configured pipeline and reports what the engine says about
// it. Without inputs that is all it does; with inputs the pipeline is run
// over them with a .las writer appended.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthCheckServer(ctx, a.config.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthCheckServer(ctx)
	}

	p, err := a.LoadPipeline(ctx, a.config.PipelinePath)
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	if err := a.applyStrategy(p); err != nil {
		return err
	}
	a.logger.Info("Pipeline loaded.", "path", a.config.PipelinePath, "stages", p.Len(), "strategy", p.Strategy())

	fmt.Fprintf(a.outW, "PIPELINE: %s\n", a.config.PipelinePath)
	fmt.Fprint(a.outW, p.Describe())
	fmt.Fprintln(a.outW)

	info, err := a.executor.Info(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to read pipeline information: %w", err)
	}
	fmt.Fprintln(a.outW, "PIPELINE INFORMATION:")
	fmt.Fprintf(a.outW, "  Streamable:              %t\n", info.Streamable)
	fmt.Fprintf(a.outW, "  Requires point data:     %t\n", info.ReadPoints)
	fmt.Fprintf(a.outW, "  Buffer needed:           %g units\n", info.Buffer)
	fmt.Fprintf(a.outW, "  Parallelizable:          %t\n", info.Parallelizable)
	fmt.Fprintf(a.outW, "  Internally parallelized: %t\n", info.Parallelized)
	fmt.Fprintln(a.outW)

	if len(a.config.Inputs) == 0 {
		fmt.Fprintln(a.outW, "INSPECTION MODE (no input files provided)")
		a.logger.Debug("App.Run method finished.")
		return nil
	}

	err = a.process(ctx, p)
	a.logger.Debug("App.Run method finished.")
	return err
}

// applyStrategy applies the strategy and ncores from the configuration.
// Without either the pipeline keeps its own processing options.
func (a *App) applyStrategy(p *pipeline.Pipeline) error {
	if a.config.Strategy == "" && len(a.config.NCores) == 0 {
		return nil
	}
	strategy := pipeline.Strategy(a.config.Strategy)
	if strategy == "" {
		strategy = pipeline.ConcurrentPoints
	}
	outer, inner := 1, 0
	if len(a.config.NCores) > 0 {
		outer = a.config.NCores[0]
	}
	if len(a.config.NCores) > 1 {
		inner = a.config.NCores[1]
	}
	return p.SetStrategy(strategy, outer, inner)
}

func (a *App) process(ctx context.Context, p *pipeline.Pipeline) error {
	files, err := fsutil.ResolveInputs(a.config.Inputs...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "INPUT FILES: %d file(s)\n", len(files))
	for i, f := range files {
		var size int64
		if st, err := os.Stat(f); err == nil {
			size = st.Size()
		}
		fmt.Fprintf(a.outW, "  %d. %s (%d bytes)\n", i+1, f, size)
	}
	fmt.Fprintln(a.outW)

	outFile := outputPath(a.config.OutputDir)
	writer, err := stages.WriteLAS(outFile, "", false)
	if err != nil {
		return err
	}
	run := pipeline.Concat(p, writer)
	run.SetVerbose(false)
	run.SetProgress(true)

	fmt.Fprintf(a.outW, "Processing %d file(s) into %s\n", len(files), filepath.Base(outFile))
	start := time.Now()
	res, err := a.executor.Execute(ctx, run, files...)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	elapsed := time.Since(start)

	if err := res.Failure(); err != nil {
		fmt.Fprintf(a.outW, "Processing failed: %s\n", res.Message)
		fmt.Fprintf(a.outW, "  Engine document: %s\n", res.JSONConfig)
		return err
	}

	st, err := os.Stat(outFile)
	if err != nil {
		return fmt.Errorf("processing completed but no output file was created: %w", lasrerr.PathNotFound(outFile, err))
	}
	fmt.Fprintln(a.outW, "Processing successful.")
	fmt.Fprintf(a.outW, "  Time:            %.2f seconds\n", elapsed.Seconds())
	fmt.Fprintf(a.outW, "  Output size:     %d bytes\n", st.Size())
	fmt.Fprintf(a.outW, "  Output file:     %s\n", outFile)
	fmt.Fprintf(a.outW, "  Engine document: %s\n", res.JSONConfig)
	return nil
}

// outputPath names the .las written in process mode. The file itself is
// created by the engine.
func outputPath(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "lasr-"+stageid.New().String()+".las")
}
