package search

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onecsuite/syntaxhelper/hbk"
)

// ErrIndexingInProgress is returned when a rebuild is requested while one
// is already running.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// ErrNoArchives is returned when the archive directory holds no .hbk files.
var ErrNoArchives = errors.New("no .hbk archives found")

// Status describes the current state of the index.
type Status struct {
	IndexExists    bool      `json:"index_exists"`
	DocumentsCount int       `json:"documents_count"`
	ArchiveFile    string    `json:"archive_file,omitempty"`
	IndexedAt      time.Time `json:"indexed_at,omitempty"`
	InProgress     bool      `json:"in_progress"`
	LastError      string    `json:"last_error,omitempty"`
}

// Indexer builds the search engine's dataset from the .hbk archives in a
// directory. Only one rebuild runs at a time.
type Indexer struct {
	dir    string
	parser *hbk.Parser
	engine *Engine
	logger *slog.Logger

	mu         sync.Mutex
	inProgress bool
	file       string
	indexedAt  time.Time
	lastError  string
}

// NewIndexer creates an indexer over the given archive directory.
func NewIndexer(dir string, parser *hbk.Parser, engine *Engine, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		dir:    dir,
		parser: parser,
		engine: engine,
		logger: logger,
	}
}

// Status returns the current index state.
func (ix *Indexer) Status() Status {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	return Status{
		IndexExists:    ix.engine.Ready(),
		DocumentsCount: ix.engine.Count(),
		ArchiveFile:    ix.file,
		IndexedAt:      ix.indexedAt,
		InProgress:     ix.inProgress,
		LastError:      ix.lastError,
	}
}

// Rebuild parses the first archive in the directory and replaces the
// engine's dataset with its documents.
func (ix *Indexer) Rebuild() error {
	ix.mu.Lock()
	if ix.inProgress {
		ix.mu.Unlock()
		return ErrIndexingInProgress
	}
	ix.inProgress = true
	ix.mu.Unlock()

	err := ix.rebuild()

	ix.mu.Lock()
	ix.inProgress = false
	if err != nil {
		ix.lastError = err.Error()
	} else {
		ix.lastError = ""
	}
	ix.mu.Unlock()

	return err
}

func (ix *Indexer) rebuild() error {
	archives, err := hbk.FindArchives(ix.dir)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return fmt.Errorf("%w in %s", ErrNoArchives, ix.dir)
	}

	file := archives[0]
	ix.logger.Info("indexing archive", "file", file)

	archive, err := ix.parser.ParseFile(file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", file, err)
	}
	if len(archive.Documents) == 0 {
		return fmt.Errorf("no documentation found in %s", file)
	}

	ix.engine.Index(archive.Documents)

	ix.mu.Lock()
	ix.file = file
	ix.indexedAt = time.Now()
	ix.mu.Unlock()

	ix.logger.Info("indexing complete", "file", file, "documents", len(archive.Documents))
	return nil
}

// AutoIndex runs a rebuild if the index is empty and archives exist. It is
// meant for startup, where a missing archive is expected rather than an
// error.
func (ix *Indexer) AutoIndex() {
	if ix.engine.Ready() {
		ix.logger.Info("index already populated, skipping auto-indexing", "documents", ix.engine.Count())
		return
	}

	archives, err := hbk.FindArchives(ix.dir)
	if err != nil {
		ix.logger.Warn("archive directory not readable", "dir", ix.dir, "error", err)
		return
	}
	if len(archives) == 0 {
		ix.logger.Info("no .hbk archives found, indexing deferred", "dir", ix.dir)
		return
	}

	if err := ix.Rebuild(); err != nil {
		ix.logger.Error("auto-indexing failed", "error", err)
	}
}
