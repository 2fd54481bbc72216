package usage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"meridian-hq/callisto/pkg/providers"
)

// Default ledger settings.
const (
	DefaultBufferSize   = 256
	DefaultMaxOpenConns = 10
	DefaultMaxIdleConns = 5
)

// Ledger is a SQLite-backed record of completed provider requests. It
// implements providers.Observer: records arrive on a buffered channel and
// a single writer goroutine persists them, so observation never blocks a
// request. When the buffer is full the record is dropped and counted.
type Ledger struct {
	db      *sql.DB
	records chan providers.RequestRecord
	done    chan struct{}

	mu      sync.Mutex
	dropped int64
	closed  bool
}

// Open creates or opens the ledger database at path and starts the
// writer. The parent directory is created when missing.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %q: %w", path, err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL on ledger %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}

	l := &Ledger{
		db:      db,
		records: make(chan providers.RequestRecord, DefaultBufferSize),
		done:    make(chan struct{}),
	}
	go l.writeLoop()

	slog.Info("usage ledger opened", "path", path)
	return l, nil
}

// ObserveRequest queues one completed request for persistence. It
// implements providers.Observer and never blocks: when the buffer is full
// the record is dropped.
func (l *Ledger) ObserveRequest(rec providers.RequestRecord) {
	// The lock is held across the send so Close cannot close the channel
	// between the closed check and the send. The send never blocks, so
	// the critical section stays short.
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	select {
	case l.records <- rec:
	default:
		l.dropped++
	}
}

// Dropped returns how many records were discarded because the buffer was
// full.
func (l *Ledger) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Ledger) writeLoop() {
	defer close(l.done)

	for rec := range l.records {
		if err := l.insert(rec); err != nil {
			slog.Error("failed to persist usage record",
				"provider", rec.Provider,
				"error", err,
			)
		}
	}
}

func (l *Ledger) insert(rec providers.RequestRecord) error {
	var promptTokens, completionTokens, totalTokens int
	if rec.Usage != nil {
		promptTokens = rec.Usage.PromptTokens
		completionTokens = rec.Usage.CompletionTokens
		totalTokens = rec.Usage.TotalTokens
	}

	var errText sql.NullString
	if rec.Err != nil {
		errText = sql.NullString{String: rec.Err.Error(), Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO usage_records
			(id, provider, model, started_at, latency_ms,
			 prompt_tokens, completion_tokens, total_tokens, streamed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Provider, rec.Model, rec.Start.UTC(),
		rec.Latency.Milliseconds(),
		promptTokens, completionTokens, totalTokens,
		rec.Streamed, errText,
	)
	return err
}

// Summary aggregates the ledger per provider.
type Summary struct {
	Provider     string
	Requests     int64
	Errors       int64
	TotalTokens  int64
	AvgLatencyMS float64
}

// Summarize returns per-provider aggregates over records since the given
// time. A zero time covers the whole ledger.
func (l *Ledger) Summarize(since time.Time) ([]Summary, error) {
	rows, err := l.db.Query(`
		SELECT provider,
		       COUNT(*),
		       SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM usage_records
		WHERE started_at >= ?
		GROUP BY provider
		ORDER BY provider`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("summarize ledger: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Provider, &s.Requests, &s.Errors, &s.TotalTokens, &s.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close drains pending records and closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.records)
	l.mu.Unlock()

	select {
	case <-l.done:
	case <-time.After(5 * time.Second):
		slog.Warn("usage ledger writer did not drain in time")
	}

	return l.db.Close()
}
