// Package remote exposes a store.RemoteStore over HTTP and WebSocket, and
// provides a Client that implements store.RemoteStore against such a
// server.
//
// REST routes live under /api; live status changes stream over /ws as
// JSON text frames, one store.ChangeEvent per frame, filtered to the
// user_id query parameter.
package remote

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/sheettrack/sheettrack/internal/store"
)

// Server serves a RemoteStore to remote clients.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	router   *gin.Engine
	store    store.RemoteStore

	// WebSocket client management
	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	// Lifecycle management
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error

	logger *log.Logger
}

// wsClient is one connected subscriber.
type wsClient struct {
	conn   *websocket.Conn
	userID string
	sub    store.Subscription
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (default: 8080, 0 picks a free port)
	Port int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.New(os.Stderr, "[remote] ", log.LstdFlags),
	}
}

// NewServer creates a server for st. Call Start to begin listening.
func NewServer(st store.RemoteStore, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:    fmt.Sprintf(":%d", config.Port),
		router:  gin.New(),
		store:   st,
		clients: make(map[*wsClient]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  config.Logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(gin.LoggerWithWriter(s.logger.Writer()))

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	NewHandler(s.store, s.logger).RegisterRoutes(api)

	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/health", s.handleHealth)
}

// Handler returns the server's HTTP handler, for embedding in another
// server or for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Remote store listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop closes every subscriber and shuts the server down. Calling it
// again returns the first result.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() { s.stopErr = s.stop() })
	return s.stopErr
}

func (s *Server) stop() error {
	s.logger.Println("Stopping remote server")

	s.cancel()

	s.clientsMu.Lock()
	for cl := range s.clients {
		_ = cl.sub.Close()
		_ = cl.conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, cl)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Remote server stopped")
	return nil
}

// handleWebSocket upgrades the connection and streams the user's changes.
func (s *Server) handleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	sub, err := s.store.Subscribe(s.ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		_ = sub.Close()
		return
	}

	cl := &wsClient{conn: conn, userID: userID, sub: sub}

	s.clientsMu.Lock()
	s.clients[cl] = struct{}{}
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected for %s (total: %d)", userID, clientCount)

	s.wg.Add(1)
	go s.pump(cl)
}

// pump forwards subscription events to the client until either side
// goes away.
func (s *Server) pump(cl *wsClient) {
	defer s.wg.Done()
	defer s.removeClient(cl)

	// Clients never send; CloseRead handles control frames and reports
	// disconnects through ctx.
	ctx := cl.conn.CloseRead(s.ctx)

	events := cl.sub.Events()
	errs := cl.sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, cl.conn, ev)
			cancel()
			if err != nil {
				s.logger.Printf("Failed to send to client %s: %v", cl.userID, err)
				return
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Printf("Subscription error for %s: %v", cl.userID, err)
		}
	}
}

// removeClient safely removes a client connection.
func (s *Server) removeClient(cl *wsClient) {
	s.clientsMu.Lock()
	if _, exists := s.clients[cl]; exists {
		delete(s.clients, cl)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = cl.sub.Close()
		_ = cl.conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client for %s disconnected (total: %d)", cl.userID, clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// GetAddr returns the server's listening address.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected subscribers.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
