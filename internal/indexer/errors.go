package indexer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrorType classifies where in the pipeline an error happened.
type ErrorType string

const (
	ErrorFileRead  ErrorType = "file_read"
	ErrorParsing   ErrorType = "parsing"
	ErrorChunking  ErrorType = "chunking"
	ErrorEmbedding ErrorType = "embedding"
	ErrorStorage   ErrorType = "storage"
	ErrorWatcher   ErrorType = "watcher"
	ErrorNetwork   ErrorType = "network"
	ErrorUnknown   ErrorType = "unknown"
)

// Severity ranks an error's impact on the run.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// IndexError is one recorded pipeline failure.
type IndexError struct {
	ID        string
	Type      ErrorType
	Severity  Severity
	FilePath  string
	Message   string
	Timestamp time.Time
}

// errorLedger collects IndexErrors with per-file and total bounds.
// Entries past a file's bound are dropped but still counted, so the
// overflow decision sees every failure.
type errorLedger struct {
	mu           sync.Mutex
	maxPerFile   int
	maxTotal     int
	entries      []IndexError
	perFile      map[string]int
	total        int
	totalDropped int
}

func newErrorLedger(maxPerFile, maxTotal int) *errorLedger {
	return &errorLedger{
		maxPerFile: maxPerFile,
		maxTotal:   maxTotal,
		perFile:    make(map[string]int),
	}
}

// record adds an error and reports whether the total bound is now
// exceeded.
func (l *errorLedger) record(errType ErrorType, severity Severity, filePath, message string) (IndexError, bool) {
	entry := IndexError{
		ID:        uuid.NewString(),
		Type:      errType,
		Severity:  severity,
		FilePath:  filePath,
		Message:   message,
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if filePath != "" {
		l.perFile[filePath]++
		if l.perFile[filePath] > l.maxPerFile {
			l.totalDropped++
			return entry, l.total > l.maxTotal
		}
	}
	l.entries = append(l.entries, entry)
	return entry, l.total > l.maxTotal
}

// count returns the total number of recorded errors, including dropped
// per-file overflow.
func (l *errorLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// snapshot copies the retained entries.
func (l *errorLedger) snapshot() []IndexError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]IndexError, len(l.entries))
	copy(out, l.entries)
	return out
}
