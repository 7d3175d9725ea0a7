package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/yndnr/attrmesh/internal/infra/tlsroots"
	"github.com/yndnr/attrmesh/internal/server/config"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
)

// Server wraps http.Server with the configured timeouts. With TLS files
// configured it serves HTTPS and picks up rotated certificates.
type Server struct {
	httpServer *http.Server
	cfg        config.HTTPConfig
	logger     logger.Logger
}

// New creates an HTTP server for handler.
func New(cfg config.HTTPConfig, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			ErrorLog:          logger.StdLog(log, slog.LevelWarn),
		},
		cfg:    cfg,
		logger: log,
	}
}

// TLSEnabled reports whether the server serves HTTPS.
func (s *Server) TLSEnabled() bool {
	return s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != ""
}

// ListenAndServe binds the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening",
		"addr", ln.Addr().String(),
		"tls", s.TLSEnabled(),
	)

	var err error
	if s.TLSEnabled() {
		certs, rerr := tlsroots.NewReloader(s.cfg.TLSCertFile, s.cfg.TLSKeyFile,
			tlsroots.WithLogger(s.logger.With("component", "tls")))
		if rerr != nil {
			_ = ln.Close()
			return rerr
		}
		defer certs.Stop()
		s.httpServer.TLSConfig = certs.ServerConfig()
		err = s.httpServer.ServeTLS(ln, "", "")
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
