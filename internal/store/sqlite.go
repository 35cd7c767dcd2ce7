package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered as "sqlite"

	"github.com/vishalbelsare/memori-sub000/internal/metrics"
)

// Supported driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Options configures a SQLiteStore.
type Options struct {
	// Driver selects the database/sql driver: DriverModernc (default) or DriverMattn.
	Driver string
	// DisableFullText skips the FTS5 probe and runs the store in LIKE-only mode.
	DisableFullText bool
	Logger          *slog.Logger
	Metrics         metrics.Collector
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	driver string

	ftsAvailable bool

	// writeMu holds the write path for the whole of an atomic batch.
	writeMu sync.Mutex

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	logger  *slog.Logger
	metrics metrics.Collector
	now     func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path with default options.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return Open(dbPath, Options{})
}

// Open opens or creates a SQLite database at dbPath and initializes the schema.
func Open(dbPath string, opts Options) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	driver := opts.Driver
	if driver == "" {
		driver = DriverModernc
	}
	dsn, err := buildDSN(driver, dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		driver:  driver,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:  logger,
		metrics: collector,
		now:     time.Now,
	}

	if err := s.initializeSchema(context.Background(), !opts.DisableFullText); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

// buildDSN applies WAL journaling, normal sync, an enlarged page cache and a
// busy timeout to every pooled connection.
func buildDSN(driver, dbPath string) (string, error) {
	switch driver {
	case DriverModernc:
		return dbPath + "?_pragma=journal_mode(wal)" +
			"&_pragma=synchronous(normal)" +
			"&_pragma=cache_size(-64000)" +
			"&_pragma=busy_timeout(5000)" +
			"&_pragma=foreign_keys(on)" +
			"&_txlock=immediate", nil
	case DriverMattn:
		return dbPath + "?_journal_mode=WAL" +
			"&_synchronous=NORMAL" +
			"&_cache_size=-64000" +
			"&_busy_timeout=5000" +
			"&_foreign_keys=on" +
			"&_txlock=immediate", nil
	default:
		return "", fmt.Errorf("unsupported driver %q (use %s or %s)", driver, DriverModernc, DriverMattn)
	}
}

// Acquire hands fn a dedicated connection and returns it to the pool on
// every exit path, including panics.
func (s *SQLiteStore) Acquire(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return storageErr("acquire connection", err)
	}
	defer conn.Close()
	return fn(conn)
}

// FullTextAvailable reports whether the FTS5 mirror is in use.
func (s *SQLiteStore) FullTextAvailable() bool {
	return s.ftsAvailable
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// observe reports one finished operation to the metrics collector.
func (s *SQLiteStore) observe(ctx context.Context, op string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		s.metrics.RecordError(ctx, op, ClassifyError(err))
	}
	s.metrics.RecordOperation(ctx, op, status, time.Since(start).Milliseconds())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
