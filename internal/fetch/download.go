// Package fetch downloads release assets and unpacks them into the
// cache. Downloads for a batch run through a small worker pool with a
// single progress bar tracking files completed vs total.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/forgebin/forgebin/internal/utils/fsutil"
	"github.com/forgebin/forgebin/internal/utils/logger"
	"github.com/forgebin/forgebin/internal/utils/network"
)

// Request names one asset to download.
type Request struct {
	Name string // package name, used for logging
	URL  string // asset URL
}

// Result reports one finished download. Err is per-file; one failed
// download does not fail the batch.
type Result struct {
	Name string
	Path string
	Err  error
}

// Downloader fetches batches of assets into per-session cache
// directories.
type Downloader struct {
	client   *http.Client
	cacheDir string
	workers  int
	quiet    bool
}

func NewDownloader(cacheDir string, workers int, quiet bool) *Downloader {
	if workers < 1 {
		workers = 1
	}
	return &Downloader{
		// No overall timeout: release archives can be large and slow.
		client:   network.NewSecureHTTPClient(0),
		cacheDir: cacheDir,
		workers:  workers,
		quiet:    quiet,
	}
}

// Fetch downloads every request into a fresh session directory under
// the cache dir and returns one Result per request, in completion
// order. Cancellation is observed between files; the pool drains
// without blocking because the results channel holds the whole batch.
func (d *Downloader) Fetch(ctx context.Context, reqs []Request) ([]Result, error) {
	log := logger.Logger()
	if len(reqs) == 0 {
		return nil, nil
	}
	session := filepath.Join(d.cacheDir, uuid.NewString())
	if err := fsutil.CreateDirIfNotExist(session); err != nil {
		return nil, err
	}

	total := len(reqs)
	jobs := make(chan Request, total)
	results := make(chan Result, total)
	var wg sync.WaitGroup

	var bar *progressbar.ProgressBar
	if !d.quiet {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}

	workers := d.workers
	if workers > total {
		workers = total
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				if bar != nil {
					bar.Describe(fmt.Sprintf("downloading %s", req.Name))
				}
				dest, err := d.fetchOne(ctx, req, session)
				if err != nil {
					log.Errorf("downloading %s failed: %v", req.URL, err)
				}
				results <- Result{Name: req.Name, Path: dest, Err: err}
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	for _, r := range reqs {
		jobs <- r
	}
	close(jobs)
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}

	out := make([]Result, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, <-results)
	}
	return out, nil
}

func (d *Downloader) fetchOne(ctx context.Context, req Request, session string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("parsing asset URL %q: %w", req.URL, err)
	}
	filename := path.Base(u.Path)
	if filename == "." || filename == "/" || filename == "" {
		return "", fmt.Errorf("asset URL %q has no filename", req.URL)
	}
	dest := filepath.Join(session, filename)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status downloading %s: %s", req.URL, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dest, err)
	}
	return dest, nil
}
