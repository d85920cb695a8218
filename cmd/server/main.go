package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/vladimirvolkov/dribble/internal/game"
	"github.com/vladimirvolkov/dribble/internal/logger"
	"github.com/vladimirvolkov/dribble/internal/middleware"
	"github.com/vladimirvolkov/dribble/internal/ws"
)

const defaultMaxSessions = 100

// securityHeaders wraps a handler with common security response headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}

// SessionManager runs one practice session per connection on a bounded pool.
type SessionManager struct {
	hub     *ws.Hub
	pool    *ants.Pool
	cfg     game.Tunables
	log     *zap.Logger
	baseCtx context.Context
}

func (sm *SessionManager) StartSession(conn *ws.Conn) error {
	sess := game.NewSession(conn.ID, conn, sm.cfg, sm.log)
	sm.hub.SessionStarted()
	err := sm.pool.Submit(func() {
		defer sm.hub.SessionEnded()
		defer conn.Close()
		sess.Run(sm.baseCtx)
	})
	if err != nil {
		sm.hub.SessionEnded()
		return err
	}
	return nil
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func main() {
	log, err := logger.New(logger.FromEnv())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "../client/dist"
	}

	// Parse allowed origins for WebSocket from environment
	var originPatterns []string
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		originPatterns = strings.Split(origins, ",")
	}

	tunables, err := game.LoadTunables(os.Getenv("TUNABLES_FILE"))
	if err != nil {
		log.Fatal("load tunables", zap.Error(err))
	}

	maxSessions := envInt("MAX_SESSIONS", defaultMaxSessions)
	pool, err := ants.NewPool(maxSessions,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			log.Error("session panic", zap.Any("panic", p))
		}))
	if err != nil {
		log.Fatal("create session pool", zap.Error(err))
	}
	defer pool.Release()

	// Max 4 conns/IP, 120 msgs/sec/IP
	limiter := middleware.NewIPRateLimiter(4, 120, time.Second)
	defer limiter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := &SessionManager{pool: pool, cfg: tunables, log: log, baseCtx: ctx}
	hub := ws.NewHub(manager, limiter, originPatterns, log)
	manager.hub = hub

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)

	// Health / stats endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.Stats())
	})

	// Static files with no-cache headers (prevents stale JS in browser)
	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		fs.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("dribble practice server starting",
		zap.String("port", port),
		zap.String("static_dir", staticDir),
		zap.Int("max_sessions", maxSessions))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server stopped")
}
