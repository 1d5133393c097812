package cache

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"hostgen/internal/project"
)

// SchemaVersion - увеличивать при изменении формата UnitResult.
const SchemaVersion uint16 = 1

//go:embed schema.sql
var schemaSQL string

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// Disk keeps unit results across runs: msgpack, then zstd, in one sqlite
// row per digest. Rows written by another schema version read as misses.
// Thread-safe for concurrent access.
type Disk struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// OpenDisk opens or creates the cache database in dir.
func OpenDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	path := filepath.Join(dir, "results.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Disk{db: db, path: path, enc: enc, dec: dec}, nil
}

// Path returns the database file.
func (c *Disk) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Put serializes and stores a result, replacing an older row.
func (c *Disk) Put(key project.Digest, res *UnitResult) error {
	if c == nil {
		return nil
	}
	row := *res
	row.Schema = SchemaVersion
	row.Digest = key
	raw, err := msgpack.Marshal(&row)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", res.Unit, err)
	}
	payload := c.enc.EncodeAll(raw, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO results (digest, schema, unit, size, payload, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		key[:], SchemaVersion, res.Unit, len(raw), payload, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storing %s: %w", res.Unit, err)
	}
	return nil
}

// Get reads a result. A missing row, or one from another schema version,
// is a miss.
func (c *Disk) Get(key project.Digest) (*UnitResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	var (
		schema  uint16
		payload []byte
	)
	err := c.db.QueryRow(`SELECT schema, payload FROM results WHERE digest = ?`, key[:]).Scan(&schema, &payload)
	c.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}
	if schema != SchemaVersion {
		return nil, false, nil
	}
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing %s: %w", key.Short(8), err)
	}
	var res UnitResult
	if err := msgpack.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", key.Short(8), err)
	}
	if res.Schema != SchemaVersion || res.Digest != key {
		return nil, false, nil
	}
	return &res, true, nil
}

// Len returns the number of stored rows.
func (c *Disk) Len() (int, error) {
	if c == nil {
		return 0, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *Disk) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(`DELETE FROM results`)
	return err
}

func (c *Disk) Close() error {
	if c == nil {
		return nil
	}
	c.dec.Close()
	return errors.Join(c.enc.Close(), c.db.Close())
}
