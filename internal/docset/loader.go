// Package docset loads documentation search index payloads from their
// configured sources and turns them into a searchable document set.
package docset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/krakend/docsearch-mcp/internal/config"
	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// Origin tells where a source's fragments were read from
type Origin string

const (
	OriginPath     Origin = "path"
	OriginCache    Origin = "cache"
	OriginDownload Origin = "download"
	OriginEmbedded Origin = "embedded"
	OriginSnapshot Origin = "snapshot"
)

var (
	// ErrUnknownSource is returned for a source name that is not loaded
	ErrUnknownSource = errors.New("unknown source")
	// ErrPageNotFound is returned when no fragment belongs to the requested page
	ErrPageNotFound = errors.New("page not found")
	// ErrNotReady is returned while no document set has been installed
	ErrNotReady = errors.New("documentation index not initialized")
	// ErrInvalidCategory is returned for a category filter other than page or section
	ErrInvalidCategory = errors.New("invalid category")
)

// Source is a loaded payload
type Source struct {
	Name      string
	BaseURL   string
	Origin    Origin
	UpdatedAt time.Time
	Index     *searchindex.Index
}

// SourceInfo summarises a loaded source for listings
type SourceInfo struct {
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url,omitempty"`
	Origin    Origin    `json:"origin"`
	UpdatedAt time.Time `json:"updated_at"`
	Fragments int       `json:"fragments"`
	Pages     int       `json:"pages"`
	Sections  int       `json:"sections"`
}

// Info summarises s
func (s Source) Info() SourceInfo {
	counts := s.Index.CategoryCounts()
	return SourceInfo{
		Name:      s.Name,
		BaseURL:   s.BaseURL,
		Origin:    s.Origin,
		UpdatedAt: s.UpdatedAt,
		Fragments: s.Index.Size(),
		Pages:     len(s.Index.PageTitles()),
		Sections:  counts[searchindex.CategorySection],
	}
}

// Loader resolves configured sources into loaded payloads.
//
// Remote payloads are cached as <CacheDir>/<name>.js next to a <name>.meta
// timestamp file; a cache younger than CacheTTL is used without downloading.
type Loader struct {
	CacheDir    string
	CacheTTL    time.Duration
	Concurrency int
	Client      *http.Client

	// Embedded returns the built-in payload used when no source is configured
	Embedded func() ([]byte, error)
}

// LoadAll loads every source concurrently, bounded by Concurrency.
// The first failure cancels the remaining loads. An empty list loads the
// embedded payload under config.EmbeddedSourceName.
func (l *Loader) LoadAll(ctx context.Context, sources []config.Source, force bool) ([]Source, error) {
	if len(sources) == 0 {
		src, err := l.LoadEmbedded()
		if err != nil {
			return nil, err
		}
		return []Source{src}, nil
	}

	jobs := l.Concurrency
	if jobs <= 0 {
		jobs = 1
	}

	results := make([]Source, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(sources)))

	for i, src := range sources {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			loaded, err := l.Load(gctx, src, force)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name, err)
			}
			results[i] = loaded
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Load resolves one source: a local path, a fresh cache of its URL, or a
// download. A failed download falls back to a stale cache when one exists.
func (l *Loader) Load(ctx context.Context, src config.Source, force bool) (Source, error) {
	out := Source{Name: src.Name, BaseURL: src.BaseURL}

	if !src.IsRemote() {
		ix, err := searchindex.LoadFile(src.Path)
		if err != nil {
			return Source{}, err
		}
		out.Origin = OriginPath
		out.Index = ix
		if info, err := os.Stat(src.Path); err == nil {
			out.UpdatedAt = info.ModTime()
		}
		return out, nil
	}

	cachePath := l.CachePath(src.Name)

	if !force && !l.Stale(src.Name) {
		ix, err := searchindex.LoadFile(cachePath)
		if err == nil {
			out.Origin = OriginCache
			out.Index = ix
			out.UpdatedAt = l.LastUpdate(src.Name)
			return out, nil
		}
		log.Printf("Warning: Cached payload for %s unreadable, downloading: %v", src.Name, err)
	}

	downloadStart := time.Now()
	if err := l.download(ctx, src, cachePath); err != nil {
		// Keep serving what we had
		if ix, cacheErr := searchindex.LoadFile(cachePath); cacheErr == nil {
			log.Printf("Warning: Download of %s failed, using stale cache: %v", src.Name, err)
			out.Origin = OriginCache
			out.Index = ix
			out.UpdatedAt = l.LastUpdate(src.Name)
			return out, nil
		}
		return Source{}, err
	}
	log.Printf("Downloaded %s in %v", src.Name, time.Since(downloadStart).Round(time.Millisecond))

	ix, err := searchindex.LoadFile(cachePath)
	if err != nil {
		return Source{}, err
	}
	out.Origin = OriginDownload
	out.Index = ix
	out.UpdatedAt = l.LastUpdate(src.Name)
	return out, nil
}

// LoadEmbedded loads the built-in payload
func (l *Loader) LoadEmbedded() (Source, error) {
	if l.Embedded == nil {
		return Source{}, fmt.Errorf("no sources configured and no embedded payload available")
	}
	data, err := l.Embedded()
	if err != nil {
		return Source{}, fmt.Errorf("failed to read embedded payload: %w", err)
	}
	ix, err := searchindex.Load(data)
	if err != nil {
		return Source{}, fmt.Errorf("embedded payload: %w", err)
	}
	return Source{
		Name:   config.EmbeddedSourceName,
		Origin: OriginEmbedded,
		Index:  ix,
	}, nil
}

// CachePath returns where the payload of a remote source is cached
func (l *Loader) CachePath(name string) string {
	return filepath.Join(l.CacheDir, name+".js")
}

func (l *Loader) metaPath(name string) string {
	return filepath.Join(l.CacheDir, name+".meta")
}

// LastUpdate returns when the cached payload of name was downloaded
func (l *Loader) LastUpdate(name string) time.Time {
	info, err := os.Stat(l.metaPath(name))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Stale reports whether the cached payload of name is missing or older than CacheTTL
func (l *Loader) Stale(name string) bool {
	info, err := os.Stat(l.metaPath(name))
	if err != nil {
		return true // No cache, needs refresh
	}
	return time.Since(info.ModTime()) > l.CacheTTL
}

// download fetches src.URL into dest through a temporary file
func (l *Loader) download(ctx context.Context, src config.Source, dest string) (err error) {
	log.Printf("Downloading %s from %s", src.Name, src.URL)

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(dest), src.Name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(file.Name())
		}
	}()

	if _, err = io.Copy(file, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Reject payloads that would not load before replacing the cache
	if _, err = searchindex.LoadFile(file.Name()); err != nil {
		return fmt.Errorf("downloaded payload is invalid: %w", err)
	}

	if err = os.Rename(file.Name(), dest); err != nil {
		return fmt.Errorf("failed to move payload into place: %w", err)
	}

	meta := fmt.Sprintf("last_update: %s\nurl: %s\n", time.Now().Format(time.RFC3339), src.URL)
	if err = os.WriteFile(l.metaPath(src.Name), []byte(meta), 0644); err != nil {
		return fmt.Errorf("failed to write meta file: %w", err)
	}
	return nil
}

// Lookup returns the source named name; an empty name selects the first source
func Lookup(sources []Source, name string) (Source, error) {
	if len(sources) == 0 {
		return Source{}, ErrNotReady
	}
	if name == "" {
		return sources[0], nil
	}
	for _, src := range sources {
		if src.Name == name {
			return src, nil
		}
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
	}
	return Source{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownSource, name, strings.Join(names, ", "))
}
