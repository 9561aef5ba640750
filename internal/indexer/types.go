package indexer

import (
	"runtime"
	"time"

	"github.com/mvp-joe/codectx/internal/parser"
)

// Status is the orchestrator's lifecycle state.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusPaused     Status = "Paused"
	StatusError      Status = "Error"
)

// FileStatus tracks one file through the pipeline.
type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileProcessing FileStatus = "processing"
	FileCompleted  FileStatus = "completed"
	FileFailed     FileStatus = "failed"
	FileSkipped    FileStatus = "skipped"
)

// ProjectFile is the identity record for a workspace file. It is created
// by discovery (or the watcher) and its Status is mutated only by the
// orchestrator, never by the parser or chunker.
type ProjectFile struct {
	ID       string
	Path     string // absolute
	RelPath  string // relative to the workspace root, slash-separated
	Language parser.Language
	Size     int64
	ModTime  time.Time
	Binary   bool
	Status   FileStatus
}

// Progress is the externally visible state of an indexing run. Snapshots
// are returned by value; the orchestrator owns the single mutable
// instance.
//
// Invariants: FilesProcessed <= TotalFiles; PercentageComplete is
// non-decreasing while Status is In Progress; ChunksIndexed counts only
// chunks that completed the full pipeline (parsed, embedded, upserted).
type Progress struct {
	Status                 Status
	PercentageComplete     float64
	ChunksIndexed          int
	TotalFiles             int
	FilesProcessed         int
	TimeElapsed            time.Duration
	EstimatedTimeRemaining time.Duration
	ErrorsEncountered      int
}

// estimateRemaining projects the time left from elapsed time and percent
// complete. Zero percent yields no estimate.
func estimateRemaining(elapsed time.Duration, pct float64) time.Duration {
	if pct <= 0 {
		return 0
	}
	return time.Duration(float64(elapsed) / pct * (100 - pct))
}

// Config configures an indexing run.
type Config struct {
	// RootDir is the workspace root to index.
	RootDir string

	// Collection is the vector store collection receiving chunks.
	Collection string

	// Include and Ignore are slash-separated glob patterns applied to
	// paths relative to RootDir.
	Include []string
	Ignore  []string

	// UseGitIgnore additionally honors the workspace's .gitignore.
	UseGitIgnore bool

	// MaxWorkers caps the parse/chunk worker pool. Zero uses the CPU
	// count, capped at 8.
	MaxWorkers int

	// EmbedBatchSize bounds texts per embedding call.
	EmbedBatchSize int

	// UpsertBatchSize bounds chunks per vector store upsert. Embedded
	// chunks accumulate across files until a batch fills.
	UpsertBatchSize int

	// SkipSyntaxErrors keeps trees containing ERROR nodes for partial
	// processing instead of failing the file.
	SkipSyntaxErrors bool

	// MaxErrorsPerFile and MaxTotalErrors bound the error ledger.
	// Exceeding MaxTotalErrors moves the run to the Error status.
	MaxErrorsPerFile int
	MaxTotalErrors   int
}

// DefaultInclude are the glob patterns for the supported languages.
var DefaultInclude = []string{
	"**/*.c", "**/*.h",
	"**/*.go",
	"**/*.java",
	"**/*.js", "**/*.jsx", "**/*.mjs",
	"**/*.php",
	"**/*.py",
	"**/*.rb",
	"**/*.rs",
	"**/*.ts", "**/*.tsx",
}

// DefaultIgnore excludes dependency and build output trees.
var DefaultIgnore = []string{
	".git/**",
	"node_modules/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"target/**",
	"__pycache__/**",
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude
	}
	if len(cfg.Ignore) == 0 {
		cfg.Ignore = DefaultIgnore
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
		if cfg.MaxWorkers > 8 {
			cfg.MaxWorkers = 8
		}
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 50
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 100
	}
	if cfg.MaxErrorsPerFile <= 0 {
		cfg.MaxErrorsPerFile = 10
	}
	if cfg.MaxTotalErrors <= 0 {
		cfg.MaxTotalErrors = 500
	}
	return cfg
}
