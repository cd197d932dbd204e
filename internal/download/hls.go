package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"
)

var ErrEncryptedStream = errors.New("encrypted HLS streams are not supported")

// hlsTransfer resolves a playlist to its best variant and concatenates the
// media segments into a single transport stream file.
type hlsTransfer struct {
	http *httpTransfer
}

func (t *hlsTransfer) Fetch(ctx context.Context, rawURL, dst string, progress ProgressFunc) (int64, error) {
	media, base, err := t.resolveMedia(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	segments := make([]string, 0, len(media.Segments))
	if media.Key != nil && !strings.EqualFold(media.Key.Method, "NONE") {
		return 0, ErrEncryptedStream
	}
	for _, seg := range media.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}
		if seg.Key != nil && !strings.EqualFold(seg.Key.Method, "NONE") {
			return 0, ErrEncryptedStream
		}
		segments = append(segments, resolveURL(base, seg.URI))
	}
	if len(segments) == 0 {
		return 0, fmt.Errorf("playlist %s has no segments", rawURL)
	}

	return writeAtomic(t.http.fs, dst, func(w io.Writer) (int64, error) {
		var written int64
		for i, segURL := range segments {
			n, err := t.copySegment(ctx, segURL, w)
			written += n
			if err != nil {
				return written, fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
			}
			if progress != nil {
				// Segment sizes are unknown up front; extrapolate from the
				// average so far.
				expected := written / int64(i+1) * int64(len(segments))
				if i == len(segments)-1 || expected < written {
					expected = written
				}
				progress(written, expected)
			}
		}
		return written, nil
	})
}

func (t *hlsTransfer) resolveMedia(ctx context.Context, rawURL string) (*m3u8.MediaPlaylist, *url.URL, error) {
	current := rawURL
	for depth := 0; depth < 2; depth++ {
		base, err := url.Parse(current)
		if err != nil {
			return nil, nil, fmt.Errorf("parse playlist url: %w", err)
		}
		pl, listType, err := t.fetchPlaylist(ctx, current)
		if err != nil {
			return nil, nil, err
		}
		switch listType {
		case m3u8.MEDIA:
			return pl.(*m3u8.MediaPlaylist), base, nil
		case m3u8.MASTER:
			variant := bestVariant(pl.(*m3u8.MasterPlaylist))
			if variant == nil {
				return nil, nil, fmt.Errorf("master playlist %s has no variants", current)
			}
			current = resolveURL(base, variant.URI)
		default:
			return nil, nil, fmt.Errorf("unknown playlist type at %s", current)
		}
	}
	return nil, nil, fmt.Errorf("playlist %s nests too deeply", rawURL)
}

func (t *hlsTransfer) fetchPlaylist(ctx context.Context, rawURL string) (m3u8.Playlist, m3u8.ListType, error) {
	resp, err := t.http.get(ctx, rawURL)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	pl, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, 0, fmt.Errorf("decode playlist %s: %w", rawURL, err)
	}
	return pl, listType, nil
}

func (t *hlsTransfer) copySegment(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	resp, err := t.http.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

func bestVariant(p *m3u8.MasterPlaylist) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range p.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

func resolveURL(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
