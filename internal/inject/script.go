package inject

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
)

const DefaultBinding = "streamshellBridge"

//go:embed bridge.js
var bridgeJS string

var bindingName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Script returns the page script that reports bridge messages through the
// named page binding. Running it more than once in a document is a no-op.
func Script(binding string) string {
	return render(binding, "")
}

// ScriptWithEndpoint is Script with an HTTP fallback for pages that have no
// binding installed, such as content opened outside the controlled browser.
func ScriptWithEndpoint(binding, endpoint string) string {
	return render(binding, endpoint)
}

func render(binding, endpoint string) string {
	if !bindingName.MatchString(binding) {
		binding = DefaultBinding
	}
	r := strings.NewReplacer(
		"__BINDING__", jsString(binding),
		"__ENDPOINT__", jsString(endpoint),
		"__PATTERN__", jsString(DownloadablePattern),
	)
	return r.Replace(bridgeJS)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// RequestFullscreenScript asks the playing video, or the first video when
// none is playing, to enter fullscreen. It evaluates to true when a video
// was found.
const RequestFullscreenScript = `() => {
  const videos = Array.from(document.querySelectorAll("video"));
  const v = videos.find((x) => !x.paused && !x.ended) || videos[0];
  if (!v) {
    return false;
  }
  const fn = v.requestFullscreen || v.webkitRequestFullscreen || v.webkitEnterFullscreen;
  if (!fn) {
    return false;
  }
  try {
    const p = fn.call(v);
    if (p && typeof p.catch === "function") {
      p.catch(() => {});
    }
  } catch (e) {
    return false;
  }
  return true;
}`

const ExitFullscreenScript = `() => {
  if (document.fullscreenElement && document.exitFullscreen) {
    document.exitFullscreen().catch(() => {});
    return true;
  }
  if (document.webkitFullscreenElement && document.webkitExitFullscreen) {
    document.webkitExitFullscreen();
    return true;
  }
  return false;
}`
