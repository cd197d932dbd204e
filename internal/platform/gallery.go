package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var mediaExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mkv": true, ".webm": true, ".mov": true,
	".avi": true, ".ts": true, ".3gp": true,
	".mp3": true, ".m4a": true, ".aac": true, ".flac": true, ".wav": true,
	".ogg": true, ".opus": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Gallery copies finished media into an album directory, the desktop
// counterpart of a media library album.
type Gallery struct {
	fs    afero.Fs
	dir   string
	album string
}

func NewGallery(fs afero.Fs, dir, album string) *Gallery {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Gallery{fs: fs, dir: dir, album: album}
}

func (g *Gallery) AlbumDir() string {
	return filepath.Join(g.dir, g.album)
}

// Register copies path into the album. Files that are not media are skipped.
func (g *Gallery) Register(ctx context.Context, path string) error {
	if !mediaExtensions[strings.ToLower(filepath.Ext(path))] {
		return nil
	}
	album := g.AlbumDir()
	if err := g.fs.MkdirAll(album, 0o755); err != nil {
		return fmt.Errorf("create album %s: %w", album, err)
	}

	src, err := g.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dst, target, err := g.createUnique(album, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, readerWithContext{ctx: ctx, r: src})
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = g.fs.Remove(target)
		return fmt.Errorf("copy into album: %w", err)
	}
	return nil
}

func (g *Gallery) createUnique(dir, name string) (afero.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = base + " (" + strconv.Itoa(i) + ")" + ext
		}
		target := filepath.Join(dir, candidate)
		f, err := g.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, target, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", target, err)
		}
	}
	return nil, "", fmt.Errorf("no free name for %s in %s", name, dir)
}

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
