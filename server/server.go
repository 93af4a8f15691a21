package server

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	HTTP *http.Server
}

// NewServer は handler を otelhttp で計装した HTTP サーバーを作ります。
// name はスパン名として使われます。
func NewServer(addr, name string, handler http.Handler) *Server {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, name),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{
		HTTP: httpServer,
	}
}

func (s *Server) Serve() error                       { return s.HTTP.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.HTTP.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.HTTP.Close() }
func (s *Server) Addr() string                       { return s.HTTP.Addr }
