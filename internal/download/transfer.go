package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const partSuffix = ".part"

// ProgressFunc receives bytes written so far and the expected total, which
// is zero or negative when the server does not announce a length.
type ProgressFunc func(written, expected int64)

// Transfer moves the resource at rawURL into dst and reports progress.
type Transfer interface {
	Fetch(ctx context.Context, rawURL, dst string, progress ProgressFunc) (int64, error)
}

type httpTransfer struct {
	client    *http.Client
	fs        afero.Fs
	userAgent string
}

func newHTTPTransfer(client *http.Client, fs afero.Fs, userAgent string) *httpTransfer {
	return &httpTransfer{client: client, fs: fs, userAgent: userAgent}
}

func (t *httpTransfer) Fetch(ctx context.Context, rawURL, dst string, progress ProgressFunc) (int64, error) {
	resp, err := t.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return writeAtomic(t.fs, dst, func(w io.Writer) (int64, error) {
		cw := &countingWriter{w: w, expected: resp.ContentLength, progress: progress}
		if _, err := io.Copy(cw, resp.Body); err != nil {
			return cw.written, fmt.Errorf("copy response body: %w", err)
		}
		return cw.written, nil
	})
}

func (t *httpTransfer) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("request %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

// writeAtomic streams into dst+".part" and renames on success so a failed or
// cancelled transfer never leaves a truncated file under the final name.
func writeAtomic(fs afero.Fs, dst string, fill func(io.Writer) (int64, error)) (int64, error) {
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}
	tmp := dst + partSuffix
	f, err := fs.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmp, err)
	}
	n, err := fill(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", tmp, cerr)
	}
	if err != nil {
		_ = fs.Remove(tmp)
		return n, err
	}
	if err := fs.Rename(tmp, dst); err != nil {
		_ = fs.Remove(tmp)
		return n, fmt.Errorf("rename %s: %w", tmp, err)
	}
	return n, nil
}

type countingWriter struct {
	w        io.Writer
	written  int64
	expected int64
	progress ProgressFunc
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	if c.progress != nil && n > 0 {
		c.progress(c.written, c.expected)
	}
	return n, err
}

// IsHLS reports whether rawURL points at an HLS playlist.
func IsHLS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".m3u8")
}
