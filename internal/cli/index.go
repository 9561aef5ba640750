package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/codectx/internal/indexer"
	"github.com/mvp-joe/codectx/internal/vectorstore"
	"github.com/mvp-joe/codectx/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var (
		watch bool
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the workspace into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), watch, quiet)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-index files as they change")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")
	return cmd
}

func runIndex(ctx context.Context, watch, quiet bool) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !d.provider.Available(ctx) {
		return fmt.Errorf("embedding provider %s is not available", d.provider.Name())
	}
	if !d.store.HealthCheck(ctx, true) {
		return fmt.Errorf("vector store at %s is not reachable", d.cfg.VectorStore.URL)
	}

	monitor := vectorstore.NewHealthMonitor(d.store, d.cfg.VectorStore.HealthInterval)
	monitor.StartMonitoring(ctx)
	defer monitor.Dispose()

	orch, err := indexer.New(d.cfg.IndexerConfig(d.rootAbs), d.provider, d.store)
	if err != nil {
		return err
	}

	var unsubscribe func()
	if !quiet {
		unsubscribe = attachProgressBar(orch)
		defer unsubscribe()
	}
	defer orch.OnError(func(ie indexer.IndexError) {
		if ie.Severity != indexer.SeverityWarning {
			fmt.Fprintf(os.Stderr, "\n[%s] %s: %s\n", ie.Type, ie.FilePath, ie.Message)
		}
	})()

	if err := orch.Start(ctx); err != nil {
		return err
	}

	// A signal during the run stops it gracefully instead of killing
	// the process mid-upsert.
	stopOnSignal := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			orch.Stop()
		case <-stopOnSignal:
		}
	}()

	orch.Wait()
	close(stopOnSignal)

	progress := orch.Progress()
	switch orch.Status() {
	case indexer.StatusCompleted:
		fmt.Printf("Indexed %d chunks from %d files in %s (%d errors)\n",
			progress.ChunksIndexed, progress.FilesProcessed,
			progress.TimeElapsed.Round(timeRounding), progress.ErrorsEncountered)
	case indexer.StatusError:
		return fmt.Errorf("indexing failed after %d files with %d errors",
			progress.FilesProcessed, progress.ErrorsEncountered)
	default:
		fmt.Printf("Indexing stopped after %d of %d files\n",
			progress.FilesProcessed, progress.TotalFiles)
		return nil
	}

	if !watch || ctx.Err() != nil {
		return nil
	}
	return runWatch(ctx, d, orch)
}

func runWatch(ctx context.Context, d *deps, orch *indexer.Orchestrator) error {
	w, err := watcher.New(watcher.Config{
		RootDir:      d.rootAbs,
		Debounce:     d.cfg.Watcher.Debounce,
		Include:      d.cfg.Indexing.Include,
		Ignore:       d.cfg.Indexing.Ignore,
		UseGitIgnore: d.cfg.Indexing.UseGitIgnore,
	}, &watchHandler{ctx: ctx, orch: orch})
	if err != nil {
		return err
	}
	defer w.Dispose()

	fmt.Println("Watching for changes, Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

// watchHandler forwards settled watch events into the indexer.
type watchHandler struct {
	ctx  context.Context
	orch *indexer.Orchestrator
}

func (h *watchHandler) FileChanged(path string) {
	if err := h.orch.HandleFileChanges(h.ctx, []string{path}); err != nil && h.ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "re-index %s: %v\n", path, err)
	}
}

func (h *watchHandler) FileDeleted(path string) {
	if err := h.orch.HandleFileDeleted(h.ctx, path); err != nil && h.ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "remove %s: %v\n", path, err)
	}
}

func attachProgressBar(orch *indexer.Orchestrator) func() {
	var bar *progressbar.ProgressBar
	return orch.OnProgress(func(p indexer.Progress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.TotalFiles,
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(p.FilesProcessed)
		if p.Status != indexer.StatusInProgress && p.Status != indexer.StatusPaused {
			_ = bar.Finish()
		}
	})
}
