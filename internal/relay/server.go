// Package relay serves the translation proxy and the transcript feed.
package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"time"

	"lecnote/internal/logger"
	"lecnote/internal/translate"
	"lecnote/internal/types"
)

// ErrorBody is the plain-text body of a failed translation.
const ErrorBody = "Error occurred while translating"

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr string
	// MDNS advertises the relay on the local network.
	MDNS bool
	// Language and ChunkWords seed new transcript feed sessions.
	Language   string
	ChunkWords int
}

// Server relays POST /translate to an upstream Translator. It adds no
// auth, rate limiting, retry or caching.
type Server struct {
	opts       Options
	translator translate.Translator
	log        logger.Logger
}

func NewServer(translator translate.Translator, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	return &Server{
		opts:       opts,
		translator: translator,
		log:        logger.With(logger.Component("relay")),
	}
}

// NewFromConfig builds the upstream translator from cfg and a server
// configured with cfg's relay settings.
func NewFromConfig(ctx context.Context, cfg *types.Config) (*Server, error) {
	translator, err := translate.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServer(translator, Options{
		Addr:       cfg.RelayAddr,
		MDNS:       cfg.MDNSEnabled,
		Language:   cfg.RecognitionLanguage,
		ChunkWords: cfg.ChunkWords,
	}), nil
}

// Handler returns the relay's routes wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/translate", s.handleTranslate)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws/transcript", s.handleFeed)
	return s.logRequests(cors(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, err := readText(r)
	if err != nil {
		s.log.Warn("malformed translate request", logger.Err(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	translated, err := s.translator.Translate(r.Context(), text)
	if err != nil {
		s.log.Error("translation failed", err,
			logger.String("code", string(types.CodeOf(err))), logger.Int("textLength", len(text)))
		http.Error(w, ErrorBody, http.StatusInternalServerError)
		return
	}

	s.log.Debug("translated", logger.Int("textLength", len(text)), logger.Int("resultLength", len(translated)))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(translate.TranslateResponse{TranslatedText: translated})
}

// readText accepts a JSON body or a url-encoded form, like the JSON and
// urlencoded body parsers of a typical express app.
func readText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return r.PostForm.Get("text"), nil
	}

	var req translate.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	return req.Text, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Int64("durationMs", time.Since(start).Milliseconds()))
	})
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrNetwork, "failed to listen", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.MDNS {
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
			adv, err := advertise(tcp.Port)
			if err != nil {
				s.log.Warn("mDNS advertisement unavailable", logger.Err(err))
			} else {
				defer adv.Shutdown()
				s.log.Info("advertising relay via mDNS", logger.String("service", ServiceType), logger.Int("port", tcp.Port))
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("relay listening", logger.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return types.NewAppError(types.ErrNetwork, "relay server stopped", err)
	case <-ctx.Done():
	}

	s.log.Info("relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return types.NewAppError(types.ErrInternal, "graceful shutdown failed", err)
	}
	return nil
}
