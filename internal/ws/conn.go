package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/vladimirvolkov/dribble/internal/logger"
	"github.com/vladimirvolkov/dribble/internal/middleware"
)

const sendBuffer = 64

type Conn struct {
	ws      *websocket.Conn
	sendCh  chan []byte
	done    chan struct{}
	once    sync.Once
	ID      string
	IP      string
	limiter *middleware.IPRateLimiter
	log     *zap.Logger
}

func NewConn(ws *websocket.Conn, id string, ip string, limiter *middleware.IPRateLimiter, log *zap.Logger) *Conn {
	return &Conn{
		ws:      ws,
		sendCh:  make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		ID:      id,
		IP:      ip,
		limiter: limiter,
		log:     logger.OrNop(log).With(zap.String("conn", id)),
	}
}

// Send queues msg without blocking; a full buffer drops it.
func (c *Conn) Send(msg Message) {
	data, err := Encode(msg)
	if err != nil {
		c.log.Warn("encode error", zap.Error(err))
		return
	}
	select {
	case c.sendCh <- data:
	default:
		c.log.Warn("send buffer full, dropping message", zap.Uint8("type", msg.Type))
	}
}

func (c *Conn) ReadLoop(ctx context.Context) <-chan Message {
	ch := make(chan Message, sendBuffer)
	go func() {
		defer close(ch)
		for {
			_, data, err := c.ws.Read(ctx)
			if err != nil {
				c.log.Info("read closed", zap.Error(err))
				c.Close()
				return
			}
			// Per-IP message rate limiting
			if c.limiter != nil && !c.limiter.MessageAllowed(c.IP) {
				continue // drop silently, don't disconnect
			}
			msg, err := Decode(data)
			if err != nil {
				c.log.Debug("decode error", zap.Error(err))
				continue
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (c *Conn) WriteLoop(ctx context.Context) {
	for {
		select {
		case data := <-c.sendCh:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Info("write error", zap.Error(err))
				c.Close()
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) Close() {
	c.CloseWith(websocket.StatusNormalClosure, "")
}

// CloseWith closes the connection once with the given status.
func (c *Conn) CloseWith(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close(code, reason)
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}
