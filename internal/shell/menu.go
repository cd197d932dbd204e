package shell

import (
	"log/slog"

	"streamshell/internal/model"
)

type MenuAction string

const (
	MenuReload     MenuAction = "reload"
	MenuDownloads  MenuAction = "downloads"
	MenuClearCache MenuAction = "clear_cache"
	MenuSettings   MenuAction = "settings"
)

var MenuActions = []MenuAction{MenuReload, MenuDownloads, MenuClearCache, MenuSettings}

func (a MenuAction) Label() string {
	switch a {
	case MenuReload:
		return "Reload"
	case MenuDownloads:
		return "Downloads"
	case MenuClearCache:
		return "Clear cache"
	case MenuSettings:
		return "Settings"
	default:
		return string(a)
	}
}

// ToggleMenu opens or closes the overlay menu. The menu never opens above
// the downloads panel.
func (s *Session) ToggleMenu() {
	if s.menu {
		s.menu = false
		s.control.show(s.deps.Clock())
		return
	}
	if s.panel {
		return
	}
	s.menu = true
	s.control.visible = true
}

// OpenDownloads shows the downloads panel and closes the menu.
func (s *Session) OpenDownloads() {
	s.menu = false
	s.panel = true
	s.control.visible = true
}

func (s *Session) CloseDownloads() {
	if !s.panel {
		return
	}
	s.panel = false
	s.control.show(s.deps.Clock())
}

func (s *Session) MenuAction(action MenuAction) {
	now := s.deps.Clock()
	s.menu = false
	s.control.show(now)

	switch action {
	case MenuReload:
		if s.browser == nil {
			return
		}
		if err := s.browser.Reload(); err != nil {
			s.log.Warn("cannot reload", slog.Any("error", err))
			s.alert(model.DismissAlert("Unable to reload", err.Error()))
		}
	case MenuDownloads:
		s.OpenDownloads()
	case MenuClearCache:
		if s.browser == nil {
			return
		}
		if err := s.browser.ClearCache(); err != nil {
			s.log.Warn("cannot clear cache", slog.Any("error", err))
			s.alert(model.DismissAlert("Unable to clear cache", err.Error()))
			return
		}
		s.alert(model.DismissAlert("Cache cleared", "The page cache was cleared."))
	case MenuSettings:
		s.deps.Router.ToConfig("settings requested")
	}
}
