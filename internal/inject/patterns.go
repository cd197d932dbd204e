package inject

import (
	"net/url"
	"regexp"
	"strings"
)

// DownloadablePattern matches URLs whose path ends in a video, audio,
// archive, document or package extension. It is shared with the page
// script, so it must stay valid in both RE2 and JavaScript.
const DownloadablePattern = `\.(mp4|m4v|mkv|webm|mov|avi|wmv|flv|3gp|mp3|m4a|aac|flac|wav|ogg|opus|zip|rar|7z|tar|gz|tgz|bz2|xz|pdf|doc|docx|xls|xlsx|ppt|pptx|epub|csv|apk|aab|ipa|dmg|exe|msi|deb|rpm|iso)(?:$|[?#])`

var downloadable = regexp.MustCompile(`(?i)` + DownloadablePattern)

// Streaming-action markers identify links that play media in the page
// rather than download it.
var streamingMarkers = []string{
	"/stream/",
	"/play/",
	"/watch/",
	"action=stream",
	"action=play",
	"inline=1",
}

func IsDownloadable(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return downloadable.MatchString(u.Path) || downloadable.MatchString(u.EscapedPath())
}

func IsStreamingAction(rawURL string) bool {
	l := strings.ToLower(rawURL)
	for _, m := range streamingMarkers {
		if strings.Contains(l, m) {
			return true
		}
	}
	return false
}

// ShouldIntercept reports whether a navigation should be diverted to the
// download manager instead of being loaded as a page.
func ShouldIntercept(rawURL string) bool {
	return IsDownloadable(rawURL) && !IsStreamingAction(rawURL)
}
