// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/dotandev/tlsign/internal/logger"
)

// Server is the HTTP listener in front of a Gateway.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server that will listen on addr (e.g. ":3001").
func NewServer(addr string, gw *Gateway) (*Server, error) {
	handler, err := NewRouter(gw)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	logger.Logger.Info("TrueLayer signing service listening", "addr", ln.Addr().String())
	logger.Logger.Info("Sign endpoint ready", "route", "POST /sign")

	if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Logger.Info("Shutting down signing service")
	return s.httpServer.Shutdown(ctx)
}
