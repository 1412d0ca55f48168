package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// liveServer is the running half of a started Server: the HTTP server
// and the listener it serves on.
type liveServer struct {
	http     *http.Server
	listener net.Listener
	mu       sync.RWMutex
}

// Shutdown stops accepting connections, then waits for in-flight
// pipeline runs to settle so their reports and logs are not lost. A
// server that was never started only drains runs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.liveMu.RLock()
	ls := s.live
	s.liveMu.RUnlock()

	if ls != nil {
		ls.mu.RLock()
		hs := ls.http
		ls.mu.RUnlock()

		if hs != nil {
			if err := hs.Shutdown(ctx); err != nil {
				return err
			}
		}
	}

	return s.drainRuns(ctx)
}

// drainRuns polls the run store until no run is still executing or the
// context expires.
func (s *Server) drainRuns(ctx context.Context) error {
	if s.service == nil {
		return nil
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for s.activeRuns() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Addr returns the address the server is listening on, or an empty
// string before the server has started.
func (s *Server) Addr() string {
	s.liveMu.RLock()
	ls := s.live
	s.liveMu.RUnlock()

	if ls == nil {
		return ""
	}

	ls.mu.RLock()
	defer ls.mu.RUnlock()

	if ls.listener == nil {
		return ""
	}

	return ls.listener.Addr().String()
}

// ListenAndServeWithShutdown starts the server and blocks until it
// stops. SIGINT and SIGTERM initiate a graceful shutdown: open
// connections get 30 seconds to finish, then in-flight pipeline runs
// are drained before the call returns.
func (s *Server) ListenAndServeWithShutdown() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	// Listener first so the actual address is known before Ready is
	// signalled (matters for port 0).
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	ls := &liveServer{
		http:     &http.Server{Handler: s.Handler()},
		listener: listener,
	}

	s.liveMu.Lock()
	s.live = ls
	s.liveMu.Unlock()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	served := make(chan error, 1)
	go func() {
		if err := ls.http.Serve(listener); err != http.ErrServerClosed {
			served <- err
			return
		}
		served <- nil
	}()

	log.Printf("Server started on %s", listener.Addr().String())
	close(s.ready)

	select {
	case sig := <-stop:
		log.Printf("Received signal %v, initiating shutdown...", sig)
	case err := <-served:
		// Serve returned on its own: either a hard error or a
		// programmatic Shutdown, which drains runs itself.
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ls.http.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
		return err
	}

	if err := s.drainRuns(ctx); err != nil {
		log.Printf("Abandoning %d in-flight runs: %v", s.activeRuns(), err)
	}

	log.Println("Server shutdown complete")

	<-served
	return nil
}
