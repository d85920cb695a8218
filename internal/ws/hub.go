package ws

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladimirvolkov/dribble/internal/logger"
	"github.com/vladimirvolkov/dribble/internal/middleware"
)

// Input messages are a few hundred bytes at most.
const readLimit = 1024

// SessionStarter gives every accepted connection its own practice session.
// An error rejects the connection as "server full".
type SessionStarter interface {
	StartSession(conn *Conn) error
}

// HubStats holds live server metrics.
type HubStats struct {
	ActiveSessions   int64  `json:"activeSessions"`
	TotalConnections uint64 `json:"totalConnections"`
	Rejected         uint64 `json:"rejected"`
}

type Hub struct {
	starter SessionStarter
	log     *zap.Logger

	activeSessions   atomic.Int64
	totalConnections atomic.Uint64
	rejected         atomic.Uint64

	limiter        *middleware.IPRateLimiter
	originPatterns []string
}

func NewHub(starter SessionStarter, limiter *middleware.IPRateLimiter, originPatterns []string, log *zap.Logger) *Hub {
	return &Hub{
		starter:        starter,
		limiter:        limiter,
		originPatterns: originPatterns,
		log:            logger.OrNop(log),
	}
}

// Stats returns a snapshot of current server metrics.
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveSessions:   h.activeSessions.Load(),
		TotalConnections: h.totalConnections.Load(),
		Rejected:         h.rejected.Load(),
	}
}

func (h *Hub) SessionStarted() { h.activeSessions.Add(1) }

// SessionEnded decrements the active session counter. Call when a session exits.
func (h *Hub) SessionEnded() { h.activeSessions.Add(-1) }

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := middleware.RealIP(r)
	if h.limiter != nil && !h.limiter.ConnectAllowed(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	acceptOpts := &websocket.AcceptOptions{}
	if len(h.originPatterns) > 0 {
		acceptOpts.OriginPatterns = h.originPatterns
	}

	wsConn, err := websocket.Accept(w, r, acceptOpts)
	if err != nil {
		if h.limiter != nil {
			h.limiter.Disconnect(ip)
		}
		h.log.Warn("ws accept error", zap.Error(err))
		return
	}
	wsConn.SetReadLimit(readLimit)

	h.totalConnections.Add(1)
	conn := NewConn(wsConn, uuid.NewString(), ip, h.limiter, h.log)
	h.log.Info("new connection",
		zap.String("conn", conn.ID),
		zap.String("ip", ip),
		zap.Uint64("total", h.totalConnections.Load()))

	// Background context so writes outlive the request context
	go conn.WriteLoop(context.Background())

	go func() {
		<-conn.Done()
		if h.limiter != nil {
			h.limiter.Disconnect(ip)
		}
	}()

	if err := h.starter.StartSession(conn); err != nil {
		h.rejected.Add(1)
		h.log.Warn("session rejected", zap.String("conn", conn.ID), zap.Error(err))
		conn.CloseWith(websocket.StatusTryAgainLater, "server full")
		return
	}

	// Block until the connection is closed; the handler keeps the TCP
	// connection under the WebSocket alive.
	<-conn.Done()
	h.log.Info("connection closed", zap.String("conn", conn.ID))
}
