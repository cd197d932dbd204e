package cli

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"streamshell/internal/settings"
)

func newFormStore(t *testing.T) settings.Store {
	t.Helper()
	store, err := settings.NewFileStoreWithFS(afero.NewMemMapFs(), "/settings.json")
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func typeInto(m configFormModel, s string) configFormModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(configFormModel)
}

func formKey(m configFormModel, t tea.KeyType) (configFormModel, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: t})
	return next.(configFormModel), cmd
}

func TestConfigFormPrefillsDefaultPort(t *testing.T) {
	m := newConfigForm(context.Background(), newFormStore(t), "server address is not configured")
	if got := m.inputs[configFieldPort].Value(); got != settings.DefaultStreamingPort {
		t.Fatalf("expected default port, got %q", got)
	}
	if m.inputs[configFieldServer].Value() != "" {
		t.Fatalf("expected empty server field")
	}
}

func TestConfigFormSavesValidValues(t *testing.T) {
	store := newFormStore(t)
	m := newConfigForm(context.Background(), store, "")
	m = typeInto(m, "http://pay.example.com")

	m, cmd := formKey(m, tea.KeyEnter)
	if cmd != nil || m.focus != configFieldPort {
		t.Fatalf("expected enter on the first field to move focus")
	}
	m, cmd = formKey(m, tea.KeyEnter)
	if cmd == nil || !m.saving {
		t.Fatalf("expected save command")
	}
	next, quit := m.Update(cmd())
	m = next.(configFormModel)
	if !m.saved || quit == nil {
		t.Fatalf("expected saved form to quit, err=%q", m.err)
	}

	got, err := settings.LoadConfig(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if got.ServerURL != "http://pay.example.com" || got.StreamingPort != settings.DefaultStreamingPort {
		t.Fatalf("unexpected saved config %+v", got)
	}
}

func TestConfigFormRejectsInvalidURL(t *testing.T) {
	store := newFormStore(t)
	m := newConfigForm(context.Background(), store, "")
	m = typeInto(m, "pay.example.com")
	m, _ = formKey(m, tea.KeyTab)
	m, cmd := formKey(m, tea.KeyEnter)

	next, _ := m.Update(cmd())
	m = next.(configFormModel)
	if m.saved {
		t.Fatalf("invalid URL must not save")
	}
	if m.err == "" {
		t.Fatalf("expected inline error")
	}
	if _, err := settings.LoadConfig(context.Background(), store); err == nil {
		t.Fatalf("nothing should have been persisted")
	}
}

func TestConfigFormEscCancels(t *testing.T) {
	m := newConfigForm(context.Background(), newFormStore(t), "")
	m, cmd := formKey(m, tea.KeyEsc)
	if !m.cancelled || cmd == nil {
		t.Fatalf("expected cancel")
	}
}
