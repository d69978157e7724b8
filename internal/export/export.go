// Package export saves CSV downloads from the portal backend.
//
// A downloaded blob is staged under a short-lived object URL ("blob:<uuid>")
// backed by a temp file. The staged file is linked to its destination and the
// object URL is revoked, removing the staged file, once RevokeAfter elapses.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/log"
	"github.com/marikmarie/mtnvas/internal/metrics"
	"github.com/marikmarie/mtnvas/internal/platform"
)

// DefaultRevokeAfter is how long a staged object URL outlives its download
const DefaultRevokeAfter = 100 * time.Millisecond

// URLScheme prefixes every object URL
const URLScheme = "blob:"

// ErrUnknownURL is returned for object URLs that were never created or are
// already revoked
var ErrUnknownURL = errors.New("unknown object URL")

// Result describes a finished export
type Result struct {
	URL   string
	Path  string
	Bytes int64
	Rows  int
}

type object struct {
	path  string
	timer *time.Timer
}

// Exporter downloads CSV exports and manages their object URLs
type Exporter struct {
	stageDir    string
	revokeAfter time.Duration
	logger      *log.Logger
	metrics     *metrics.Metrics

	mu      sync.Mutex
	objects map[string]*object
	wg      sync.WaitGroup
}

// Option configures an Exporter
type Option func(*Exporter)

// WithStagingDir stages blobs in dir instead of the system temp dir
func WithStagingDir(dir string) Option {
	return func(e *Exporter) { e.stageDir = dir }
}

// WithRevokeAfter sets the revoke delay
func WithRevokeAfter(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.revokeAfter = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l.Named("export")
		}
	}
}

// WithMetrics records export outcomes and sizes
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// New creates an Exporter
func New(opts ...Option) *Exporter {
	e := &Exporter{
		revokeAfter: DefaultRevokeAfter,
		logger:      log.DefaultLogger(),
		objects:     make(map[string]*object),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RevokeAfter returns the configured revoke delay
func (e *Exporter) RevokeAfter() time.Duration {
	return e.revokeAfter
}

// Export downloads path as CSV and writes it to dest. When dest is empty or
// an existing directory, the file name comes from the response or falls
// back to a dated name derived from path.
func (e *Exporter) Export(ctx context.Context, client *platform.Client, path string, params url.Values, dest string) (*Result, error) {
	blob, err := client.Download(ctx, path, params)
	if err != nil {
		e.metrics.Exported(false, 0)
		return nil, err
	}

	target := resolveDest(dest, blob.FileName, path, time.Now())

	objectURL, err := e.CreateObjectURL(blob.Data)
	if err != nil {
		e.metrics.Exported(false, 0)
		return nil, perrors.NewExportError(target, err)
	}

	if err := e.link(objectURL, target); err != nil {
		if rerr := e.RevokeObjectURL(objectURL); rerr != nil {
			e.logger.WithError(rerr).Warn("failed to revoke object URL", "url", objectURL)
		}
		e.metrics.Exported(false, 0)
		return nil, perrors.NewExportError(target, err)
	}
	e.scheduleRevoke(objectURL)

	size := int64(len(blob.Data))
	e.metrics.Exported(true, size)
	e.logger.Info("export saved", "path", target, "bytes", size)

	return &Result{
		URL:   objectURL,
		Path:  target,
		Bytes: size,
		Rows:  CountRows(blob.Data),
	}, nil
}

// CreateObjectURL stages data and returns a handle for it. The handle stays
// valid until RevokeObjectURL.
func (e *Exporter) CreateObjectURL(data []byte) (string, error) {
	if e.stageDir != "" {
		if err := os.MkdirAll(e.stageDir, 0700); err != nil {
			return "", fmt.Errorf("failed to create staging directory: %w", err)
		}
	}

	f, err := os.CreateTemp(e.stageDir, "wakanet-export-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to stage export: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage export: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage export: %w", err)
	}

	objectURL := URLScheme + uuid.NewString()
	e.mu.Lock()
	e.objects[objectURL] = &object{path: f.Name()}
	e.mu.Unlock()

	e.logger.Debug("object URL created", "url", objectURL, "staged", f.Name())
	return objectURL, nil
}

// RevokeObjectURL releases the handle and removes its staged file
func (e *Exporter) RevokeObjectURL(objectURL string) error {
	e.mu.Lock()
	obj, ok := e.objects[objectURL]
	if ok {
		delete(e.objects, objectURL)
		// a stopped timer never runs its func, so release its Wait slot here
		if obj.timer != nil && obj.timer.Stop() {
			e.wg.Done()
		}
	}
	e.mu.Unlock()

	if !ok {
		return ErrUnknownURL
	}
	if err := os.Remove(obj.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged export: %w", err)
	}
	e.logger.Debug("object URL revoked", "url", objectURL)
	return nil
}

// Open reads the blob behind an object URL
func (e *Exporter) Open(objectURL string) (io.ReadCloser, error) {
	e.mu.Lock()
	obj, ok := e.objects[objectURL]
	e.mu.Unlock()
	if !ok {
		return nil, ErrUnknownURL
	}
	return os.Open(obj.path)
}

// Pending lists object URLs not yet revoked
func (e *Exporter) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	urls := make([]string, 0, len(e.objects))
	for u := range e.objects {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Wait blocks until every scheduled revoke has run
func (e *Exporter) Wait() {
	e.wg.Wait()
}

// Close revokes every pending object URL immediately
func (e *Exporter) Close() error {
	var errs []error
	for _, u := range e.Pending() {
		if err := e.RevokeObjectURL(u); err != nil && !errors.Is(err, ErrUnknownURL) {
			errs = append(errs, err)
		}
	}
	e.wg.Wait()
	return errors.Join(errs...)
}

func (e *Exporter) scheduleRevoke(objectURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, ok := e.objects[objectURL]
	if !ok {
		return
	}
	e.wg.Add(1)
	obj.timer = time.AfterFunc(e.revokeAfter, func() {
		defer e.wg.Done()
		if err := e.RevokeObjectURL(objectURL); err != nil && !errors.Is(err, ErrUnknownURL) {
			e.logger.WithError(err).Warn("failed to revoke object URL", "url", objectURL)
		}
	})
}

// link copies the staged blob to dest through a temp file in dest's directory
func (e *Exporter) link(objectURL, dest string) error {
	src, err := e.Open(objectURL)
	if err != nil {
		return err
	}
	defer src.Close()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".wakanet-*.partial")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// CountRows returns the number of data rows in a CSV document, excluding the
// header. Malformed CSV counts non-empty lines instead.
func CountRows(data []byte) int {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		records = make([][]string, n)
	}
	if len(records) == 0 {
		return 0
	}
	return len(records) - 1
}

func resolveDest(dest, serverName, path string, now time.Time) string {
	name := filepath.Base(serverName)
	if serverName == "" || name == "." || name == string(filepath.Separator) {
		name = DefaultFileName(path, now)
	}

	if dest == "" {
		return name
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, name)
	}
	if strings.HasSuffix(dest, string(filepath.Separator)) {
		return filepath.Join(dest, name)
	}
	return dest
}

// DefaultFileName builds "<resource>_<YYYY-MM-DD>.csv" from an export path
// such as /stocks/export
func DefaultFileName(path string, now time.Time) string {
	resource := "export"
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part != "" && part != "export" {
			resource = part
			break
		}
	}
	return fmt.Sprintf("%s_%s.csv", resource, now.Format("2006-01-02"))
}
