package inject

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIntercept(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://pay.example.com/files/movie.mp4", true},
		{"https://pay.example.com/files/Movie.MKV?token=1", true},
		{"https://pay.example.com/files/archive.zip#part", true},
		{"https://pay.example.com/docs/manual.pdf", true},
		{"https://pay.example.com/apps/client.apk", true},
		{"https://pay.example.com/stream/movie.mp4", false},
		{"https://pay.example.com/files/movie.mp4?action=play", false},
		{"https://pay.example.com/watch/42", false},
		{"https://pay.example.com/", false},
		{"https://pay.example.com/page.html", false},
		{"https://pay.example.com/mp4", false},
		{"https://pay.example.com/movie.mp4x", false},
		{"ftp://pay.example.com/movie.mp4", false},
		{"blob:https://pay.example.com/uuid", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ShouldIntercept(tc.url), tc.url)
	}
}

func TestScriptEmbedsBindingAndPattern(t *testing.T) {
	s := Script("myBridge")
	assert.Contains(t, s, `var BINDING = "myBridge";`)
	assert.Contains(t, s, `var ENDPOINT = "";`)
	assert.Contains(t, s, "__streamshellInjected")
	assert.Contains(t, s, "data-streamshell-bound")
	assert.NotContains(t, s, "__BINDING__")
	assert.NotContains(t, s, "__PATTERN__")

	m := regexp.MustCompile(`var DOWNLOADABLE = new RegExp\((".*"), "i"\);`).FindStringSubmatch(s)
	require.Len(t, m, 2)
	assert.Equal(t, jsString(DownloadablePattern), m[1])
}

func TestScriptRejectsUnsafeBinding(t *testing.T) {
	s := Script(`x"; alert(1); "`)
	assert.Contains(t, s, `var BINDING = "`+DefaultBinding+`";`)
	assert.NotContains(t, s, "alert(1)")
}

func TestScriptWithEndpoint(t *testing.T) {
	s := ScriptWithEndpoint(DefaultBinding, "http://127.0.0.1:8765/bridge")
	assert.Contains(t, s, `var ENDPOINT = "http://127.0.0.1:8765/bridge";`)
}

func TestFullscreenScriptsAreFunctions(t *testing.T) {
	for _, s := range []string{RequestFullscreenScript, ExitFullscreenScript} {
		assert.True(t, strings.HasPrefix(s, "() => {"))
		assert.True(t, strings.HasSuffix(s, "}"))
	}
}
