package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/mathroute/internal/observability"
	"github.com/harun/mathroute/internal/tracing"
	"github.com/harun/mathroute/pkg/pipeline"
	"github.com/harun/mathroute/pkg/registry"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxRequestBytes caps the body of a single RPC message.
const MaxRequestBytes = 1 << 20

// DefaultShutdownTimeout bounds the wait for in-flight requests on Stop.
const DefaultShutdownTimeout = 30 * time.Second

// Server exposes a pipeline over JSON-RPC 2.0 on HTTP and WebSocket.
type Server struct {
	addr              string
	sharedSecret      string
	requestsPerMinute int
	maxConcurrent     int
	shutdownTimeout   time.Duration

	handler  pipeline.Handler
	registry *registry.Registry
	router   *RPCRouter
	clients  *ClientRegistry
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	httpServer *http.Server
	listener   net.Listener

	shutdownMu     sync.RWMutex
	isShuttingDown bool
	inFlight       sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Host              string
	Port              int
	SharedSecret      string
	RequestsPerMinute int
	MaxConcurrent     int
	ShutdownTimeout   time.Duration
	Handler           pipeline.Handler
	Registry          *registry.Registry
	Logger            *zerolog.Logger
}

// NewServer validates cfg and registers the built-in methods.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("query handler is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Server{
		addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		sharedSecret:      cfg.SharedSecret,
		requestsPerMinute: cfg.RequestsPerMinute,
		maxConcurrent:     cfg.MaxConcurrent,
		shutdownTimeout:   cfg.ShutdownTimeout,
		handler:           cfg.Handler,
		registry:          cfg.Registry,
		router:            NewRPCRouter(),
		clients:           NewClientRegistry(),
		logger:            logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.registerBuiltinMethods()
	observability.EnsureRegistered()

	return s, nil
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting JSON-RPC server")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("JSON-RPC server error")
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until ctx is done, then stops it.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Stop refuses new requests, waits for in-flight ones up to the shutdown
// timeout and closes every connection.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down JSON-RPC server")

	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	for _, client := range s.clients.All() {
		_ = client.Conn.Close()
	}

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("JSON-RPC server stopped")
	return nil
}

// Clients returns information about connected WebSocket clients.
func (s *Server) Clients() []ClientInfo {
	return s.clients.Info()
}

// RegisterMethod adds or replaces an RPC method.
func (s *Server) RegisterMethod(name string, handler RequestHandler) error {
	return s.router.RegisterMethod(name, handler)
}

// admit registers an in-flight request unless the server is stopping.
func (s *Server) admit() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()

	if s.isShuttingDown {
		return false
	}
	s.inFlight.Add(1)
	return true
}

func (s *Server) deny(r *http.Request, w http.ResponseWriter, endpoint string) {
	observability.RecordSecurityAudit(r.Context(), "server.auth", r.RemoteAddr, "denied", map[string]interface{}{
		"endpoint": endpoint,
	})
	s.logger.Warn().Str("ip", r.RemoteAddr).Str("endpoint", endpoint).Msg("Rejected request without valid shared secret")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// handleRPC handles single-shot HTTP JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		s.deny(r, w, "/rpc")
		return
	}
	if !s.admit() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.inFlight.Done()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	req, err := s.router.ParseRequest(body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(parseFailure(err))
		return
	}

	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = tracing.NewTraceID()
	}
	connID, _ := gonanoid.New()

	ctx := tracing.WithTraceID(r.Context(), traceID)
	ctx = tracing.WithClientID(ctx, connID)
	ctx = tracing.WithRequestID(ctx, req.ID)

	logger := tracing.LoggerFromContext(ctx, s.logger)
	logger.Debug().Str("method", req.Method).Msg("Received HTTP RPC request")

	resp := s.router.RouteRequest(ctx, req)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("Failed to encode RPC response")
	}
}

// handleWebSocket upgrades the connection and serves requests on it until
// the peer disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	stopping := s.isShuttingDown
	s.shutdownMu.RUnlock()
	if stopping {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	if !s.authorized(r) {
		s.deny(r, w, "/ws")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, err := gonanoid.New()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate client id")
		_ = conn.Close()
		return
	}

	now := time.Now()
	client := &Client{
		ID:           clientID,
		Conn:         conn,
		ConnectedAt:  now,
		LastActivity: now,
		IPAddress:    r.RemoteAddr,
		RateLimiter:  NewClientRateLimiter(s.requestsPerMinute, s.maxConcurrent),
	}
	observability.SetWebSocketConnections(s.clients.Add(client))

	s.logger.Info().Str("clientId", clientID).Str("ip", r.RemoteAddr).Msg("Client connected")

	go s.handleClient(client)
}

func (s *Server) handleClient(client *Client) {
	ctx, cancel := context.WithCancel(tracing.WithClientID(context.Background(), client.ID))
	defer func() {
		cancel()
		_ = client.Conn.Close()
		observability.SetWebSocketConnections(s.clients.Remove(client.ID))
		s.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
	}()

	client.Conn.SetReadLimit(MaxRequestBytes)

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("clientId", client.ID).Msg("WebSocket read error")
			}
			return
		}

		s.clients.Touch(client.ID)
		s.handleMessage(ctx, client, message)
	}
}

// handleMessage answers one frame. Requests run concurrently; responses may
// arrive out of order and are matched by id.
func (s *Server) handleMessage(ctx context.Context, client *Client, message []byte) {
	req, err := s.router.ParseRequest(message)
	if err != nil {
		s.reply(client, parseFailure(err))
		return
	}

	if ok, code, reason := client.RateLimiter.Acquire(); !ok {
		s.reply(client, errorResponse(req.ID, code, reason))
		return
	}
	if !s.admit() {
		client.RateLimiter.Release()
		s.reply(client, errorResponse(req.ID, ShuttingDown, "server is shutting down"))
		return
	}

	reqCtx := tracing.WithRequestID(ctx, req.ID)
	go func() {
		defer s.inFlight.Done()
		defer client.RateLimiter.Release()

		s.reply(client, s.router.RouteRequest(reqCtx, req))
	}()
}

func (s *Server) reply(client *Client, resp *RPCResponse) {
	if err := client.send(resp); err != nil {
		s.logger.Error().
			Err(err).
			Str("clientId", client.ID).
			Str("requestId", resp.ID).
			Msg("Failed to send response")
	}
}

func parseFailure(err error) *RPCResponse {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return &RPCResponse{JSONRPC: JSONRPCVersion, Error: rpcErr}
	}
	return errorResponse("", ParseError, err.Error())
}
