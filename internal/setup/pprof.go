package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"go.uber.org/zap"
)

// pprofServer serves the runtime profiles on localhost.
type pprofServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// startPprofServer binds localhost:port and serves the profiles on a private mux,
// so nothing else registered on http.DefaultServeMux is exposed.
func startPprofServer(port int, logger *zap.Logger) (*pprofServer, error) {
	addr := fmt.Sprintf("localhost:%d", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pprof listener: %w", err)
	}

	s := &pprofServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		listener: listener,
		logger:   logger.Named("pprof"),
	}

	go func() {
		s.logger.Info("Serving pprof", zap.String("address", addr))
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("pprof server failed", zap.Error(err))
		}
	}()

	return s, nil
}

// Shutdown stops the server and releases the listener.
func (s *pprofServer) Shutdown(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown pprof server", zap.Error(err))
	}
	s.listener.Close()
}
