package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"geodiff/domain/core"
	"geodiff/domain/geo"
	"geodiff/internal"
)

// Fetcher downloads GDS SOFT files from the GEO FTP mirror over HTTPS and
// keeps them in a local cache directory. A valid cached copy is never
// re-downloaded.
type Fetcher struct {
	baseURL string
	client  *http.Client
	cache   *Cache
	log     *internal.Logger
}

// NewFetcher creates a fetcher over the given cache. baseURL points at the
// datasets root (e.g. https://ftp.ncbi.nlm.nih.gov/geo/datasets); timeout
// bounds the whole download.
func NewFetcher(baseURL string, timeout time.Duration, cache *Cache, log *internal.Logger) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		log:     log.WithPrefix("loader"),
	}
}

// Fetch returns the local path of the SOFT file for the accession,
// downloading it first if the cache has no valid copy.
func (f *Fetcher) Fetch(ctx context.Context, accession geo.Accession) (string, error) {
	if err := validateAccession(accession); err != nil {
		return "", err
	}

	if path, ok := f.cache.Lookup(ctx, accession); ok {
		f.log.Info("cache hit for %s at %s", accession, path)
		return path, nil
	}

	url := f.softURL(accession)
	f.log.Info("downloading %s from %s", accession, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", core.NewDownloadError(string(accession), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", core.NewDownloadError(string(accession), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", core.NewDownloadError(string(accession),
			fmt.Errorf("remote returned %s", resp.Status))
	}

	path := filepath.Join(f.cache.Dir(), fmt.Sprintf("%s.soft.gz", accession))
	if err := writeAtomic(path, resp.Body); err != nil {
		return "", core.NewDownloadError(string(accession), err)
	}

	if err := f.cache.Store(ctx, accession, path); err != nil {
		return "", err
	}
	f.log.Info("stored %s in cache", accession)
	return path, nil
}

// softURL builds the mirror path for a GDS accession. GEO shards datasets
// into buckets with the last three digits masked: GDS4382 lives under
// GDS4nnn/GDS4382/soft/GDS4382.soft.gz.
func (f *Fetcher) softURL(accession geo.Accession) string {
	acc := string(accession)
	bucket := acc
	if len(acc) > 3 {
		bucket = acc[:len(acc)-3] + "nnn"
	}
	return fmt.Sprintf("%s/%s/%s/soft/%s.soft.gz", f.baseURL, bucket, acc, acc)
}

func validateAccession(accession geo.Accession) error {
	acc := string(accession)
	if !strings.HasPrefix(acc, "GDS") || len(acc) < 4 {
		return core.NewDownloadError(acc, fmt.Errorf("not a GDS accession"))
	}
	return nil
}

// writeAtomic streams body to path via a temp file so an interrupted
// download never leaves a truncated file behind for the cache to trust.
func writeAtomic(path string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
