package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 5 * time.Second

// Server serves /metrics and /healthz
type Server struct {
	srv    *http.Server
	logger logger.Logger
}

// Handler returns the HTTP handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func NewServer(addr string, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(gatherer),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: log,
	}
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errFactory.Wrap(ErrServeFailed, err)
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorWithCode(errFactory.Wrap(ErrServeFailed, err)).Msg("Metrics server exited")
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}
