package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindFullscreenChange Kind = "fullscreenchange"
	KindVideoState       Kind = "videoState"
	KindDownload         Kind = "download"
	KindUserInteraction  Kind = "userInteraction"
	KindAudio            Kind = "audio"
)

var (
	ErrMalformed   = errors.New("malformed bridge message")
	ErrUnknownKind = errors.New("unknown bridge message type")
)

// Message is one decoded bridge payload. The concrete types below are the
// only implementations.
type Message interface {
	Kind() Kind
}

type FullscreenChange struct {
	IsFullscreen bool
}

type VideoState struct {
	IsPlaying bool
}

type Download struct {
	URL      string
	Filename string
}

type UserInteraction struct{}

// Audio reports media playback with optional title metadata taken from the
// element's data-title and data-artist attributes.
type Audio struct {
	Playing bool
	Title   string
	Artist  string
}

func (FullscreenChange) Kind() Kind { return KindFullscreenChange }
func (VideoState) Kind() Kind       { return KindVideoState }
func (Download) Kind() Kind         { return KindDownload }
func (UserInteraction) Kind() Kind  { return KindUserInteraction }
func (Audio) Kind() Kind            { return KindAudio }

type envelope struct {
	Type         Kind    `json:"type"`
	IsFullscreen *bool   `json:"isFullscreen"`
	IsPlaying    *bool   `json:"isPlaying"`
	URL          *string `json:"url"`
	Filename     string  `json:"filename"`
	Action       string  `json:"action"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
}

// Decode parses one UTF-8 JSON bridge payload.
func Decode(raw string) (Message, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case KindFullscreenChange:
		if env.IsFullscreen == nil {
			return nil, fmt.Errorf("%w: fullscreenchange without isFullscreen", ErrMalformed)
		}
		return FullscreenChange{IsFullscreen: *env.IsFullscreen}, nil
	case KindVideoState:
		if env.IsPlaying == nil {
			return nil, fmt.Errorf("%w: videoState without isPlaying", ErrMalformed)
		}
		return VideoState{IsPlaying: *env.IsPlaying}, nil
	case KindDownload:
		if env.URL == nil || strings.TrimSpace(*env.URL) == "" {
			return nil, fmt.Errorf("%w: download without url", ErrMalformed)
		}
		return Download{URL: strings.TrimSpace(*env.URL), Filename: env.Filename}, nil
	case KindUserInteraction:
		return UserInteraction{}, nil
	case KindAudio:
		switch env.Action {
		case "playing":
			return Audio{Playing: true, Title: env.Title, Artist: env.Artist}, nil
		case "paused":
			return Audio{}, nil
		default:
			return nil, fmt.Errorf("%w: audio action %q", ErrMalformed, env.Action)
		}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
}
