package devbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"streamshell/internal/inject"
)

const maxMessageBytes = 64 << 10

// Sink receives raw bridge payloads exactly as posted.
type Sink interface {
	BridgeMessage(raw string)
}

// Server lets page content that is not running inside the controlled browser
// post bridge messages over HTTP.
type Server struct {
	log  *slog.Logger
	addr string
	sink Sink

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func NewServer(addr string, sink Sink, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		log:  log.With(slog.String("item", "DevBridge")),
		addr: addr,
		sink: sink,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/bridge", NewMessageHandler(s.sink, s.log)).Methods(http.MethodPost)
	r.HandleFunc("/bridge", preflight).Methods(http.MethodOptions)
	r.HandleFunc("/bridge.js", NewScriptHandler(s.endpoint)).Methods(http.MethodGet)
	return r
}

func (s *Server) endpoint(r *http.Request) string {
	host := r.Host
	if host == "" {
		host = s.Addr()
	}
	return "http://" + host + "/bridge"
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.ln = ln
	s.mu.Unlock()

	s.log.Info("bridge endpoint listening", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("bridge endpoint stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// NewMessageHandler forwards the body to sink. Every body is accepted;
// undecodable payloads are dropped later by the bridge handler.
func NewMessageHandler(sink Sink, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "MessageHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		allowOrigin(w)
		body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
		if err != nil {
			log.Debug("cannot read bridge body", slog.Any("error", err))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if len(body) > maxMessageBytes {
			http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
			return
		}
		if sink != nil {
			sink.BridgeMessage(string(body))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func NewScriptHandler(endpoint func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowOrigin(w)
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = io.WriteString(w, inject.ScriptWithEndpoint(inject.DefaultBinding, endpoint(r)))
	}
}

func preflight(w http.ResponseWriter, r *http.Request) {
	allowOrigin(w)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

func allowOrigin(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
}
