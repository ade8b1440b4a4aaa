package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"geodiff/domain/geo"
	"geodiff/domain/run"
	"geodiff/internal/errors"
)

// Cache owns the local cache directory: downloaded SOFT files on disk plus a
// SQLite index recording what is cached and which runs were executed. The
// directory is the only persisted state in the pipeline and is opaque to
// every other component.
type Cache struct {
	dir string
	db  *sqlx.DB
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	accession  TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	sha256     TEXT NOT NULL,
	fetched_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	accession    TEXT NOT NULL,
	min_samples  INTEGER NOT NULL,
	p_cutoff     REAL NOT NULL,
	lfc_cutoff   REAL NOT NULL,
	genes_total  INTEGER NOT NULL,
	genes_kept   INTEGER NOT NULL,
	samples      INTEGER NOT NULL,
	contrast     TEXT NOT NULL,
	weight_iters INTEGER NOT NULL,
	df_prior     REAL NOT NULL,
	s2_prior     REAL NOT NULL,
	up           INTEGER NOT NULL,
	down         INTEGER NOT NULL,
	unchanged    INTEGER NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP NOT NULL
);
`

// OpenCache creates the cache directory if needed and opens its index.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.CacheError("create cache directory", err)
	}
	db, err := sqlx.Connect("sqlite", filepath.Join(dir, "geodiff.db"))
	if err != nil {
		return nil, errors.CacheError("open cache index", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, errors.CacheError("initialize cache schema", err)
	}
	return &Cache{dir: dir, db: db}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Close releases the index handle.
func (c *Cache) Close() error { return c.db.Close() }

// Lookup returns the cached file path for an accession when the index knows
// it and the file still exists with the recorded checksum. A missing or
// corrupted file is treated as a miss.
func (c *Cache) Lookup(ctx context.Context, accession geo.Accession) (string, bool) {
	var entry struct {
		Path   string `db:"path"`
		SHA256 string `db:"sha256"`
	}
	err := c.db.GetContext(ctx, &entry,
		`SELECT path, sha256 FROM datasets WHERE accession = ?`, string(accession))
	if err != nil {
		return "", false
	}
	sum, err := checksumFile(entry.Path)
	if err != nil || sum != entry.SHA256 {
		return "", false
	}
	return entry.Path, true
}

// Store records a downloaded file in the index.
func (c *Cache) Store(ctx context.Context, accession geo.Accession, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.CacheError("stat cached file", err)
	}
	sum, err := checksumFile(path)
	if err != nil {
		return errors.CacheError("checksum cached file", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO datasets (accession, path, size, sha256, fetched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(accession), path, info.Size(), sum, time.Now().UTC())
	if err != nil {
		return errors.CacheError("record cached file", err)
	}
	return nil
}

// RecordRun appends a completed run manifest to the ledger.
func (c *Cache) RecordRun(ctx context.Context, m *run.Manifest) error {
	_, err := c.db.NamedExecContext(ctx,
		`INSERT INTO runs (run_id, accession, min_samples, p_cutoff, lfc_cutoff,
			genes_total, genes_kept, samples, contrast, weight_iters,
			df_prior, s2_prior, up, down, unchanged, started_at, finished_at)
		 VALUES (:run_id, :accession, :min_samples, :p_cutoff, :lfc_cutoff,
			:genes_total, :genes_kept, :samples, :contrast, :weight_iters,
			:df_prior, :s2_prior, :up, :down, :unchanged, :started_at, :finished_at)`, m)
	if err != nil {
		return errors.CacheError("record run manifest", err)
	}
	return nil
}

// Runs returns the recorded manifests for an accession, newest first.
func (c *Cache) Runs(ctx context.Context, accession geo.Accession) ([]run.Manifest, error) {
	var out []run.Manifest
	err := c.db.SelectContext(ctx, &out,
		`SELECT * FROM runs WHERE accession = ? ORDER BY started_at DESC`, string(accession))
	if err != nil {
		return nil, errors.CacheError("list runs", err)
	}
	return out, nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
