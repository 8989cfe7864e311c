package ports

import (
	"edgeport/internal/data/history"
	"edgeport/internal/engine/transform"
)

// Transformer rewrites one source file. Implementations must be safe for
// concurrent use and return the untouched source alongside any error.
type Transformer interface {
	Transform(unit transform.SourceUnit) (transform.Result, error)
}

// HistoryStore persists run summaries and per-file outcomes.
type HistoryStore interface {
	RecordRun(run history.Run, files []history.FileResult) error
	ListRuns(limit int) ([]history.Run, error)
	Close() error
}
