package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/orchardguard/tractor/server/observer"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/export"
)

// Server hosts a streamed terrain world together with its observer endpoints.
type Server struct {
	conf  Config
	world *world.World
	hub   *observer.Hub
	start time.Time

	mu   sync.Mutex
	http *http.Server
	addr net.Addr

	once   sync.Once
	closed chan struct{}
	err    error
}

// World returns the world hosted by the Server.
func (srv *Server) World() *world.World {
	return srv.world
}

// Observer returns the hub streaming realised chunks to observers.
func (srv *Server) Observer() *observer.Hub {
	return srv.hub
}

// StartTime returns the time at which the Server was created.
func (srv *Server) StartTime() time.Time {
	return srv.start
}

// ExportPath returns the default snapshot file of the Server.
func (srv *Server) ExportPath() string {
	return srv.conf.ExportPath
}

// Listen starts serving the observer endpoints on the configured address. It
// returns once the listener is bound. Listen does nothing if no address is
// configured.
func (srv *Server) Listen() error {
	if srv.conf.ObserverAddress == "" {
		return nil
	}
	l, err := net.Listen("tcp", srv.conf.ObserverAddress)
	if err != nil {
		return fmt.Errorf("listen observer: %w", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", srv.hub.BootstrapHandler())
	mux.HandleFunc("/ws", srv.hub.WSHandler())
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	srv.mu.Lock()
	srv.http, srv.addr = hs, l.Addr()
	srv.mu.Unlock()

	srv.conf.Log.Info("Observer listening.", "addr", l.Addr().String())
	go func() {
		if err := hs.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.conf.Log.Error("Observer server stopped.", "error", err)
		}
	}()
	return nil
}

// Addr returns the address the observer endpoints listen on, or nil if Listen
// was not called.
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.addr
}

// Export writes every realised chunk to path.
func (srv *Server) Export(path string) (export.Header, error) {
	snap := export.Capture(srv.world)
	if err := export.Write(path, snap); err != nil {
		return snap.Header, fmt.Errorf("export: %w", err)
	}
	return snap.Header, nil
}

// Close stops the observer endpoints, exports the world if configured and
// closes the world. Close may be called multiple times; subsequent calls
// return the result of the first.
func (srv *Server) Close() error {
	srv.once.Do(func() {
		srv.conf.Log.Info("Server closing...")
		var errs []error

		srv.mu.Lock()
		hs := srv.http
		srv.mu.Unlock()
		if hs != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			errs = append(errs, hs.Shutdown(ctx))
			cancel()
		}
		if srv.conf.ExportOnClose && srv.conf.ExportPath != "" {
			h, err := srv.Export(srv.conf.ExportPath)
			if err == nil {
				srv.conf.Log.Info("World exported.", "file", srv.conf.ExportPath, "chunks", h.Chunks)
			}
			errs = append(errs, err)
		}
		srv.conf.Log.Debug("Closing world...")
		errs = append(errs, srv.world.Close())
		srv.err = errors.Join(errs...)
		close(srv.closed)
	})
	return srv.err
}

// Done returns a channel that is closed once the Server has been closed.
func (srv *Server) Done() <-chan struct{} {
	return srv.closed
}
