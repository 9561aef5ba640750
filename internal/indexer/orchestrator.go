package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/codectx/internal/chunker"
	"github.com/mvp-joe/codectx/internal/embed"
	"github.com/mvp-joe/codectx/internal/parser"
	"github.com/mvp-joe/codectx/internal/vectorstore"
)

// ErrAlreadyRunning is returned by Start when a run is in progress or
// paused. Stop or Cancel the current run first.
var ErrAlreadyRunning = errors.New("indexing already running")

var errStopped = errors.New("indexing stopped")

// fileResult carries one worker's output to the coordinator.
type fileResult struct {
	file    ProjectFile
	chunks  []chunker.Chunk
	failed  bool
	skipped bool
}

// Orchestrator drives the full pipeline: discovery, parallel parsing and
// chunking, batched embedding, and vector store upserts. Workers own
// their parser and chunker; a single coordinator goroutine owns
// embedding, storage, and progress, so no counters need atomic access
// beyond the state mutex.
type Orchestrator struct {
	cfg      Config
	provider embed.Provider
	store    vectorstore.Store

	mu          sync.Mutex
	status      Status
	progress    Progress
	files       map[string]FileStatus
	ledger      *errorLedger
	gate        *gate
	stopCh      chan struct{}
	stopOnce    *sync.Once
	cancelRun   context.CancelFunc
	done        chan struct{}
	flushCh     chan struct{}
	starting    bool
	stopped     bool
	cancelled   bool
	storeDown   bool
	startedAt   time.Time
	pauseStart  time.Time
	pausedTotal time.Duration

	listenerMu  sync.Mutex
	nextID      int
	onProgress  map[int]func(Progress)
	onError     map[int]func(IndexError)
}

// New creates an orchestrator in the Not Started state.
func New(cfg Config, provider embed.Provider, store vectorstore.Store) (*Orchestrator, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}

	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:      cfg,
		provider: provider,
		store:    store,
		status:   StatusNotStarted,
		// The ledger and cancel func are replaced by Start; these let
		// the incremental entry points record errors with no run active.
		ledger:     newErrorLedger(cfg.MaxErrorsPerFile, cfg.MaxTotalErrors),
		cancelRun:  func() {},
		files:      make(map[string]FileStatus),
		onProgress: make(map[int]func(Progress)),
		onError:    make(map[int]func(IndexError)),
	}, nil
}

// Start begins an indexing run and returns once discovery and collection
// setup succeed; the pipeline continues in the background until Wait
// observes completion. Starting while a run is In Progress or Paused
// fails with ErrAlreadyRunning. Starting from Completed or Error begins
// a fresh run.
func (o *Orchestrator) Start(ctx context.Context) error {
	// Claiming the run in the same critical section as the check keeps
	// two concurrent Starts from both reaching setup and sharing run
	// state.
	o.mu.Lock()
	if o.starting || o.isActiveLocked() {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.starting = true
	o.mu.Unlock()

	release := func(err error) error {
		o.mu.Lock()
		o.starting = false
		o.mu.Unlock()
		return err
	}

	filter, err := newPathFilter(o.cfg.RootDir, o.cfg.Include, o.cfg.Ignore, o.cfg.UseGitIgnore)
	if err != nil {
		return release(err)
	}
	files, err := discoverFiles(o.cfg.RootDir, filter)
	if err != nil {
		return release(fmt.Errorf("discover files: %w", err))
	}

	if _, err := o.store.CreateCollectionIfNotExists(ctx, o.cfg.Collection, o.provider.Dimensions()); err != nil {
		return release(fmt.Errorf("ensure collection %s: %w", o.cfg.Collection, err))
	}

	runCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.starting = false
	o.status = StatusInProgress
	o.ledger = newErrorLedger(o.cfg.MaxErrorsPerFile, o.cfg.MaxTotalErrors)
	o.gate = newGate()
	o.stopCh = make(chan struct{})
	o.stopOnce = &sync.Once{}
	o.cancelRun = cancel
	o.done = make(chan struct{})
	o.flushCh = make(chan struct{}, 1)
	o.stopped = false
	o.cancelled = false
	o.storeDown = false
	o.startedAt = time.Now()
	o.pausedTotal = 0
	o.files = make(map[string]FileStatus, len(files))
	for _, file := range files {
		o.files[file.RelPath] = FilePending
	}
	o.progress = Progress{
		Status:     StatusInProgress,
		TotalFiles: len(files),
	}
	o.mu.Unlock()

	o.notifyProgress()
	go o.run(runCtx, files)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, files []ProjectFile) {
	defer close(o.done)
	defer o.cancelRun()

	results := make(chan fileResult, o.cfg.MaxWorkers)
	coordinatorDone := make(chan struct{})
	go func() {
		defer close(coordinatorDone)
		o.coordinate(ctx, results)
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	work := make(chan ProjectFile)

	// A stop exits the feeder and workers with nil so the group context
	// stays live and every result already produced reaches the
	// coordinator. Only Cancel and the error budget tear the context
	// down.
	group.Go(func() error {
		defer close(work)
		for _, file := range files {
			select {
			case work <- file:
			case <-groupCtx.Done():
				return groupCtx.Err()
			case <-o.stopCh:
				return nil
			}
		}
		return nil
	})

	for i := 0; i < o.cfg.MaxWorkers; i++ {
		group.Go(func() error {
			worker := &fileWorker{
				parser:  parser.New(o.cfg.SkipSyntaxErrors),
				chunker: chunker.New(),
				orch:    o,
			}
			for file := range work {
				if err := o.gate.wait(groupCtx, o.stopCh); err != nil {
					if errors.Is(err, errStopped) {
						return nil
					}
					return err
				}
				select {
				case results <- worker.process(file):
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
			return nil
		})
	}

	err := group.Wait()
	close(results)
	<-coordinatorDone

	o.finish(err)
}

// finish sets the run's terminal status. Stop and Cancel return the
// orchestrator to Not Started so a fresh run can begin; the progress
// counters from the interrupted run stay readable.
func (o *Orchestrator) finish(runErr error) {
	o.mu.Lock()
	switch {
	case o.stopped:
		o.status = StatusNotStarted
	case o.storeDown || o.ledger.count() > o.cfg.MaxTotalErrors:
		// Both abort paths cancel the run context themselves, so they
		// must be classified before cancellation.
		o.status = StatusError
	case o.cancelled || errors.Is(runErr, context.Canceled):
		o.cancelled = true
		o.status = StatusNotStarted
	case runErr != nil:
		o.status = StatusError
	default:
		o.status = StatusCompleted
		o.progress.PercentageComplete = 100
	}
	o.progress.Status = o.status
	o.progress.ErrorsEncountered = o.ledger.count()
	o.progress.TimeElapsed = o.elapsedLocked()
	o.progress.EstimatedTimeRemaining = 0
	o.mu.Unlock()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("indexing finished with error: %v", runErr)
	}
	o.notifyProgress()
}

// coordinate consumes worker results, embeds each file's chunks, and
// accumulates the embedded chunks across files so the store receives
// full upsert batches instead of one small upsert per file. Chunks in
// failed embedding batches are dropped and recorded. The buffer drains
// at batch-size boundaries, at pause, and when the result stream ends.
func (o *Orchestrator) coordinate(ctx context.Context, results <-chan fileResult) {
	batch := &upsertBatch{orch: o, size: o.cfg.UpsertBatchSize}
	for {
		select {
		case result, ok := <-results:
			if !ok {
				batch.flush(ctx)
				return
			}
			o.handleResult(ctx, batch, result)
		case <-o.flushCh:
			batch.flush(ctx)
		}
	}
}

func (o *Orchestrator) handleResult(ctx context.Context, batch *upsertBatch, result fileResult) {
	if result.skipped {
		o.advance(result.file, 0, FileSkipped)
		return
	}
	if result.failed || len(result.chunks) == 0 {
		o.advance(result.file, 0, FileFailed)
		return
	}

	texts := make([]string, len(result.chunks))
	for i, chunk := range result.chunks {
		texts[i] = embedText(chunk)
	}

	vectors, report, err := embed.EmbedBatched(ctx, o.provider, texts, o.cfg.EmbedBatchSize)
	if err != nil {
		// Context cancellation; the run is ending.
		o.advance(result.file, 0, FileFailed)
		return
	}

	keepChunks, keepVectors := result.chunks, vectors
	if len(report.Failures) > 0 {
		for _, failure := range report.Failures {
			o.record(ErrorEmbedding, SeverityError, result.file.RelPath,
				fmt.Sprintf("embedding batch [%d,%d) failed: %v", failure.Start, failure.End, failure.Err))
		}
		keepChunks, keepVectors = dropFailed(result.chunks, vectors, report.Failures)
	}
	if len(keepChunks) == 0 {
		o.advance(result.file, 0, FileFailed)
		return
	}

	batch.add(ctx, result.file, keepChunks, keepVectors)

	// A pause settles once the files already claimed by workers clear
	// the whole pipeline, so their chunks cannot sit buffered.
	if o.Status() == StatusPaused {
		batch.flush(ctx)
	}
}

// checkStoreHealth aborts the run when the store stops answering health
// probes. An upsert that exhausted its retries against a dead backend
// will not recover mid-run.
func (o *Orchestrator) checkStoreHealth(ctx context.Context) {
	if ctx.Err() != nil || o.store.HealthCheck(ctx, true) {
		return
	}
	o.record(ErrorNetwork, SeverityCritical, "",
		"vector store unreachable, aborting run")
	o.mu.Lock()
	o.storeDown = true
	o.mu.Unlock()
	o.cancelRun()
}

// upsertBatch buffers embedded chunks across files. A file advances to
// its terminal status only after the flush covering its chunks, so
// FilesProcessed and ChunksIndexed never count work the store has not
// accepted.
type upsertBatch struct {
	orch    *Orchestrator
	size    int
	chunks  []chunker.Chunk
	vectors [][]float32
	files   []batchedFile
}

// batchedFile tracks how much of one file's output is still buffered.
// A file whose chunks span two flushes completes only if both succeed.
type batchedFile struct {
	file    ProjectFile
	pending int
	indexed int
	failed  bool
}

func (b *upsertBatch) add(ctx context.Context, file ProjectFile, chunks []chunker.Chunk, vectors [][]float32) {
	b.chunks = append(b.chunks, chunks...)
	b.vectors = append(b.vectors, vectors...)
	b.files = append(b.files, batchedFile{file: file, pending: len(chunks)})
	for len(b.chunks) >= b.size {
		b.flushN(ctx, b.size)
	}
}

// flush drains whatever is buffered, regardless of batch size.
func (b *upsertBatch) flush(ctx context.Context) {
	for len(b.chunks) > 0 {
		n := len(b.chunks)
		if n > b.size {
			n = b.size
		}
		b.flushN(ctx, n)
	}
}

func (b *upsertBatch) flushN(ctx context.Context, n int) {
	err := b.orch.store.UpsertChunks(ctx, b.orch.cfg.Collection, b.chunks[:n], b.vectors[:n])
	if err != nil {
		b.orch.record(ErrorStorage, SeverityError, "",
			fmt.Sprintf("upsert batch of %d chunks: %v", n, err))
		b.orch.checkStoreHealth(ctx)
	}

	remaining := n
	for remaining > 0 {
		f := &b.files[0]
		take := f.pending
		if take > remaining {
			take = remaining
		}
		f.pending -= take
		remaining -= take
		if err != nil {
			f.failed = true
		} else {
			f.indexed += take
		}
		if f.pending == 0 {
			status := FileCompleted
			if f.failed {
				status = FileFailed
			}
			b.orch.advance(f.file, f.indexed, status)
			b.files = b.files[1:]
		}
	}
	b.chunks = b.chunks[n:]
	b.vectors = b.vectors[n:]
}

// embedText is the text sent to the provider for a chunk. The name and
// docstring lead so the identifier outweighs boilerplate syntax.
func embedText(chunk chunker.Chunk) string {
	if chunk.Name == "" && chunk.Docstring == "" {
		return chunk.Content
	}
	text := chunk.Name
	if chunk.Docstring != "" {
		text += "\n" + chunk.Docstring
	}
	return text + "\n" + chunk.Content
}

func dropFailed(chunks []chunker.Chunk, vectors [][]float32, failures []embed.BatchFailure) ([]chunker.Chunk, [][]float32) {
	failed := make(map[int]bool)
	for _, failure := range failures {
		for i := failure.Start; i < failure.End; i++ {
			failed[i] = true
		}
	}

	keepChunks := make([]chunker.Chunk, 0, len(chunks)-len(failed))
	keepVectors := make([][]float32, 0, len(chunks)-len(failed))
	for i := range chunks {
		if failed[i] {
			continue
		}
		keepChunks = append(keepChunks, chunks[i])
		keepVectors = append(keepVectors, vectors[i])
	}
	return keepChunks, keepVectors
}

// advance moves one file to its terminal status and publishes progress.
func (o *Orchestrator) advance(file ProjectFile, chunksIndexed int, status FileStatus) {
	o.mu.Lock()
	o.files[file.RelPath] = status
	o.progress.FilesProcessed++
	o.progress.ChunksIndexed += chunksIndexed
	if o.progress.TotalFiles > 0 {
		o.progress.PercentageComplete = float64(o.progress.FilesProcessed) / float64(o.progress.TotalFiles) * 100
	}
	o.progress.ErrorsEncountered = o.ledger.count()
	o.progress.TimeElapsed = o.elapsedLocked()
	o.progress.EstimatedTimeRemaining = estimateRemaining(o.progress.TimeElapsed, o.progress.PercentageComplete)
	o.mu.Unlock()

	o.notifyProgress()
}

// record adds an error to the ledger, notifies listeners, and cancels
// the run when the total bound is exceeded.
func (o *Orchestrator) record(errType ErrorType, severity Severity, filePath, message string) {
	entry, overflow := o.ledger.record(errType, severity, filePath, message)

	o.listenerMu.Lock()
	listeners := make([]func(IndexError), 0, len(o.onError))
	for _, listener := range o.onError {
		listeners = append(listeners, listener)
	}
	o.listenerMu.Unlock()
	for _, listener := range listeners {
		listener(entry)
	}

	if overflow {
		log.Printf("error budget exhausted (%d errors), aborting run", o.ledger.count())
		o.cancelRun()
	}
}

// Pause halts workers at the next file boundary. Files already in the
// pipeline complete fully. Pausing an idle orchestrator is a logged
// no-op.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusInProgress {
		log.Printf("pause requested but indexing is %s, ignoring", o.status)
		return
	}
	o.gate.pause()
	o.status = StatusPaused
	o.progress.Status = StatusPaused
	o.pauseStart = time.Now()

	// Drain the upsert buffer so progress reflects every file that
	// finishes its pipeline before the pause settles.
	select {
	case o.flushCh <- struct{}{}:
	default:
	}
}

// Resume releases paused workers. Resuming when not paused is a logged
// no-op.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusPaused {
		log.Printf("resume requested but indexing is %s, ignoring", o.status)
		return
	}
	o.pausedTotal += time.Since(o.pauseStart)
	o.gate.resume()
	o.status = StatusInProgress
	o.progress.Status = StatusInProgress
}

// Stop ends the run gracefully: in-flight files finish their full
// pipeline, queued files are abandoned. Stopping an idle orchestrator
// is a logged no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.isActiveLocked() {
		o.mu.Unlock()
		log.Printf("stop requested but indexing is %s, ignoring", o.status)
		return
	}
	o.stopped = true
	gate, once, stopCh := o.gate, o.stopOnce, o.stopCh
	o.mu.Unlock()

	// A paused run must be released or workers never reach the stop
	// check.
	gate.resume()
	once.Do(func() { close(stopCh) })
}

// Cancel aborts the run immediately, abandoning in-flight work.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if !o.isActiveLocked() {
		o.mu.Unlock()
		log.Printf("cancel requested but indexing is %s, ignoring", o.status)
		return
	}
	o.cancelled = true
	gate, cancel := o.gate, o.cancelRun
	o.mu.Unlock()

	gate.resume()
	cancel()
}

func (o *Orchestrator) isActiveLocked() bool {
	return o.status == StatusInProgress || o.status == StatusPaused
}

// IsStoppable reports whether Stop would act.
func (o *Orchestrator) IsStoppable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isActiveLocked()
}

// IsCancellable reports whether Cancel would act.
func (o *Orchestrator) IsCancellable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isActiveLocked()
}

// Status returns the lifecycle state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Progress returns a snapshot with live elapsed time.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := o.progress
	if o.isActiveLocked() {
		snapshot.TimeElapsed = o.elapsedLocked()
		snapshot.EstimatedTimeRemaining = estimateRemaining(snapshot.TimeElapsed, snapshot.PercentageComplete)
	}
	return snapshot
}

// FileStatuses returns the current run's per-file terminal states,
// keyed by relative path.
func (o *Orchestrator) FileStatuses() map[string]FileStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]FileStatus, len(o.files))
	for path, status := range o.files {
		out[path] = status
	}
	return out
}

// Errors returns the recorded pipeline errors.
func (o *Orchestrator) Errors() []IndexError {
	o.mu.Lock()
	ledger := o.ledger
	o.mu.Unlock()
	if ledger == nil {
		return nil
	}
	return ledger.snapshot()
}

// Wait blocks until the current run finishes. It returns immediately if
// no run was started.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// elapsedLocked is wall time spent actively indexing, excluding paused
// stretches.
func (o *Orchestrator) elapsedLocked() time.Duration {
	if o.startedAt.IsZero() {
		return 0
	}
	elapsed := time.Since(o.startedAt) - o.pausedTotal
	if o.status == StatusPaused {
		elapsed -= time.Since(o.pauseStart)
	}
	return elapsed
}

// OnProgress registers a listener for progress updates. The returned
// function unsubscribes.
func (o *Orchestrator) OnProgress(listener func(Progress)) func() {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	id := o.nextID
	o.nextID++
	o.onProgress[id] = listener
	return func() {
		o.listenerMu.Lock()
		defer o.listenerMu.Unlock()
		delete(o.onProgress, id)
	}
}

// OnError registers a listener for recorded errors. The returned
// function unsubscribes.
func (o *Orchestrator) OnError(listener func(IndexError)) func() {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	id := o.nextID
	o.nextID++
	o.onError[id] = listener
	return func() {
		o.listenerMu.Lock()
		defer o.listenerMu.Unlock()
		delete(o.onError, id)
	}
}

func (o *Orchestrator) notifyProgress() {
	snapshot := o.Progress()
	o.listenerMu.Lock()
	listeners := make([]func(Progress), 0, len(o.onProgress))
	for _, listener := range o.onProgress {
		listeners = append(listeners, listener)
	}
	o.listenerMu.Unlock()
	for _, listener := range listeners {
		listener(snapshot)
	}
}

// HandleFileChanges re-indexes changed files. Stale chunks are deleted
// first so spans that moved do not linger. Paths that no longer match
// the filters are ignored.
func (o *Orchestrator) HandleFileChanges(ctx context.Context, paths []string) error {
	filter, err := newPathFilter(o.cfg.RootDir, o.cfg.Include, o.cfg.Ignore, o.cfg.UseGitIgnore)
	if err != nil {
		return err
	}

	worker := &fileWorker{
		parser:  parser.New(o.cfg.SkipSyntaxErrors),
		chunker: chunker.New(),
		orch:    o,
	}

	for _, path := range paths {
		file, err := statFile(o.cfg.RootDir, path)
		if err != nil {
			o.record(ErrorFileRead, SeverityWarning, path, err.Error())
			continue
		}
		if !filter.match(file.RelPath) {
			continue
		}

		result := worker.process(file)
		if result.skipped {
			// The file was truncated to empty; its stored chunks are
			// stale.
			if err := o.store.DeleteByFile(ctx, o.cfg.Collection, file.RelPath); err != nil && !errors.Is(err, vectorstore.ErrNotFound) {
				o.record(ErrorStorage, SeverityWarning, file.RelPath,
					fmt.Sprintf("delete stale chunks: %v", err))
			}
			continue
		}
		if result.failed || len(result.chunks) == 0 {
			continue
		}

		texts := make([]string, len(result.chunks))
		for i, chunk := range result.chunks {
			texts[i] = embedText(chunk)
		}
		vectors, report, err := embed.EmbedBatched(ctx, o.provider, texts, o.cfg.EmbedBatchSize)
		if err != nil {
			return err
		}
		keepChunks, keepVectors := result.chunks, vectors
		if len(report.Failures) > 0 {
			for _, failure := range report.Failures {
				o.record(ErrorEmbedding, SeverityError, file.RelPath,
					fmt.Sprintf("embedding batch [%d,%d) failed: %v", failure.Start, failure.End, failure.Err))
			}
			keepChunks, keepVectors = dropFailed(result.chunks, vectors, report.Failures)
		}
		if len(keepChunks) == 0 {
			continue
		}

		if err := o.store.DeleteByFile(ctx, o.cfg.Collection, file.RelPath); err != nil && !errors.Is(err, vectorstore.ErrNotFound) {
			o.record(ErrorStorage, SeverityWarning, file.RelPath,
				fmt.Sprintf("delete stale chunks: %v", err))
		}
		if err := o.store.UpsertChunks(ctx, o.cfg.Collection, keepChunks, keepVectors); err != nil {
			o.record(ErrorStorage, SeverityError, file.RelPath,
				fmt.Sprintf("upsert %d chunks: %v", len(keepChunks), err))
		}
	}
	return nil
}

// HandleFileDeleted removes a deleted file's chunks from the store.
func (o *Orchestrator) HandleFileDeleted(ctx context.Context, path string) error {
	rel := relPath(o.cfg.RootDir, path)
	err := o.store.DeleteByFile(ctx, o.cfg.Collection, rel)
	if errors.Is(err, vectorstore.ErrNotFound) {
		return nil
	}
	return err
}

// relPath converts a watcher path to the slash-separated relative form
// used as the stored file_path. The file may already be gone, so this is
// purely textual.
func relPath(rootDir, path string) string {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return filepath.ToSlash(path)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absRoot, path)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// fileWorker is the per-goroutine parse and chunk stage. Parser and
// Chunker are not safe for concurrent use, so each worker owns a pair.
type fileWorker struct {
	parser  *parser.Parser
	chunker *chunker.Chunker
	orch    *Orchestrator
}

// process reads, parses, and chunks one file. Failures are recorded and
// reported; they never abort the run.
func (w *fileWorker) process(file ProjectFile) fileResult {
	source, err := os.ReadFile(file.Path)
	if err != nil {
		w.orch.record(ErrorFileRead, SeverityWarning, file.RelPath, err.Error())
		return fileResult{file: file, failed: true}
	}
	if len(source) == 0 {
		// Empty files (a bare __init__.py) have nothing to index and
		// are not failures.
		return fileResult{file: file, skipped: true}
	}

	result, err := w.parser.ParseRobust(file.RelPath, source, file.Language)
	if err != nil {
		w.orch.record(ErrorParsing, SeverityError, file.RelPath, err.Error())
		return fileResult{file: file, failed: true}
	}
	if !result.Success {
		w.orch.record(ErrorParsing, SeverityError, file.RelPath,
			fmt.Sprintf("%d syntax errors, first at %s", len(result.Errors), result.Errors[0]))
		return fileResult{file: file, failed: true}
	}
	if result.ErrorsSkipped {
		w.orch.record(ErrorParsing, SeverityWarning, file.RelPath,
			fmt.Sprintf("%d syntax errors skipped, indexing partial tree", len(result.Errors)))
	}
	defer result.Tree.Close()

	chunks := w.chunker.Chunk(file.RelPath, result.Tree, source, file.Language)
	return fileResult{file: file, chunks: chunks}
}

// gate implements pause and resume. A closed channel means open; pausing
// swaps in a fresh channel that resume closes.
type gate struct {
	mu     sync.Mutex
	ch     chan struct{}
	paused bool
}

func newGate() *gate {
	ch := make(chan struct{})
	close(ch)
	return &gate{ch: ch}
}

func (g *gate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.ch = make(chan struct{})
	}
}

func (g *gate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.ch)
	}
}

// wait blocks while the gate is paused. Stop and cancellation win over
// the pause so a paused run can still be torn down.
func (g *gate) wait(ctx context.Context, stopCh <-chan struct{}) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-stopCh:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
