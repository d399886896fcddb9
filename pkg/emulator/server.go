package emulator

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/transport"
	"go.uber.org/zap"
)

/*
Server exposes a Device the way a developer bridge exposes real hardware.

TCP:
  - Each request is a length-prefixed APDU, each reply is the framed
    data followed by the status word (see transport.WriteReply).
  - A connection carries any number of exchanges, one at a time.

HTTP:
  POST /apdu:
    - Request:  { "data": "<hex apdu>" }
    - Response: { "data": "<hex data + status word>" }
*/

// ServerConfig holds the listen addresses of the emulator; an empty address disables that listener.
type ServerConfig struct {
	ListenAddress     string
	HTTPListenAddress string
}

// Server serves a Device over TCP and HTTP
type Server struct {
	device *Device
	config ServerConfig
	logger *zap.Logger

	tcpListener  net.Listener
	httpListener net.Listener
	httpServer   *http.Server

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewServer creates a new server instance
func NewServer(device *Device, config ServerConfig, logger *zap.Logger) *Server {
	s := &Server{
		device: device,
		config: config,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(transport.APDUPath, s.handleAPDU)

	s.httpServer = &http.Server{
		Handler: mux,
	}
	return s
}

// Start binds the configured listeners and serves them in the background
func (s *Server) Start() error {
	if s.config.ListenAddress != "" {
		ln, err := net.Listen("tcp", s.config.ListenAddress)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
		}
		s.tcpListener = ln
		s.logger.Sugar().Infow("Starting APDU TCP server", "address", ln.Addr().String())

		s.wg.Add(1)
		go s.acceptLoop(ln)
	}

	if s.config.HTTPListenAddress != "" {
		ln, err := net.Listen("tcp", s.config.HTTPListenAddress)
		if err != nil {
			if s.tcpListener != nil {
				_ = s.tcpListener.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", s.config.HTTPListenAddress, err)
		}
		s.httpListener = ln
		s.logger.Sugar().Infow("Starting APDU HTTP server", "address", ln.Addr().String())

		go func() {
			if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Sugar().Errorw("HTTP server error", "error", err)
			}
		}()
	}
	return nil
}

// TCPAddr returns the bound TCP address, or "" when TCP is disabled or not started.
func (s *Server) TCPAddr() string {
	if s.tcpListener == nil {
		return ""
	}
	return s.tcpListener.Addr().String()
}

// HTTPAddr returns the bound HTTP address, or "" when HTTP is disabled or not started.
func (s *Server) HTTPAddr() string {
	if s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Stop closes the listeners and all open connections
func (s *Server) Stop() error {
	s.mu.Lock()
	s.stopped = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	var errs []error
	if s.tcpListener != nil {
		if err := s.tcpListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if err := s.httpServer.Close(); err != nil {
		errs = append(errs, err)
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Sugar().Errorw("Accept failed", "error", err)
			}
			return
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	s.logger.Sugar().Debugw("Client connected", "remote", remote)

	for {
		apdu, err := transport.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Sugar().Debugw("Closing connection", "remote", remote, "error", err)
			}
			return
		}

		if err := transport.WriteReply(conn, s.device.HandleAPDU(apdu)); err != nil {
			s.logger.Sugar().Debugw("Failed to write reply", "remote", remote, "error", err)
			return
		}
	}
}

// handleAPDU handles the /apdu endpoint
func (s *Server) handleAPDU(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transport.APDURequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 2*transport.MaxFrameSize)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	apdu, err := hex.DecodeString(req.Data)
	if err != nil {
		http.Error(w, "data must be hex encoded", http.StatusBadRequest)
		return
	}

	raw := s.device.HandleAPDU(apdu)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&transport.APDUResponse{Data: hex.EncodeToString(raw)}); err != nil {
		s.logger.Sugar().Errorw("Failed to encode response", "error", err)
	}
}
