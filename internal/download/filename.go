package download

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultBaseName  = "download"
	DefaultExtension = ".bin"
	maxFilenameLen   = 200
	maxExtensionLen  = 16
)

var forbiddenChars = regexp.MustCompile(`[/\\?%*:|"<>\s]+`)

// SanitizeFilename returns a filesystem-safe name for a download. When name
// is empty the last non-empty path segment of rawURL is used instead. The
// result never contains path separators, wildcard or quote characters, or
// whitespace, and always carries an extension.
func SanitizeFilename(rawURL, name string) string {
	name = stripQuery(strings.TrimSpace(name))
	if name == "" {
		name = lastSegment(rawURL)
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) {
			return '_'
		}
		return r
	}, name)
	name = forbiddenChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(strings.TrimRight(name, "_"), "._")

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if len(ext) > maxExtensionLen {
		base, ext = name, ""
	}
	if strings.Trim(base, "._") == "" {
		base = DefaultBaseName
	}
	if ext == "" || ext == "." {
		ext = DefaultExtension
	}

	if len(base)+len(ext) > maxFilenameLen {
		base = truncateUTF8(base, maxFilenameLen-len(ext))
	}
	return base + ext
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// WithSuffix inserts suffix before the extension of a sanitized name.
func WithSuffix(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + suffix + ext
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func lastSegment(rawURL string) string {
	p := stripQuery(strings.TrimSpace(rawURL))
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && u.Path != "" {
		p = u.EscapedPath()
	}
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(parts[i]); seg != "" {
			return seg
		}
	}
	return ""
}
