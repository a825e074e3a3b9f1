package mcp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/troubleshooter/internal/logging"
)

// DefaultEndpointPath is where the streamable HTTP transport serves MCP.
const DefaultEndpointPath = "/mcp"

// ServeStdio serves MCP over in and out until ctx is done or in is closed.
// Log output is moved to errOut so it cannot corrupt the protocol stream.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	previous := logging.SetOutput(errOut)
	defer logging.SetOutput(previous)

	stdio := server.NewStdioServer(s.mcpServer)
	err := stdio.Listen(ctx, in, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

// HTTPHandler returns a mux serving stateless streamable HTTP at endpoint and
// a /health probe.
func (s *Server) HTTPHandler(endpoint string) http.Handler {
	endpoint = normalizeEndpoint(endpoint)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(endpoint, server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(endpoint),
		server.WithStateLess(true),
	))
	return mux
}

// ServeHTTP listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, addr, endpoint string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(endpoint),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving MCP on %s%s", addr, normalizeEndpoint(endpoint))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func normalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return DefaultEndpointPath
	}
	if !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	return endpoint
}
