package platform

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

func init() {
	// The terminal UI owns stdout.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Opener hands files and URLs to the operating system. It serves as both the
// sharing service and the external browser fallback.
type Opener struct{}

func (Opener) OpenFile(path string) error {
	if err := browser.OpenFile(path); err != nil {
		return fmt.Errorf("open file %s: %w", path, err)
	}
	return nil
}

func (Opener) OpenURL(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("open url %s: %w", url, err)
	}
	return nil
}
