// Package ws connects the bot to the messaging gateway over a WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/phoneutil"
)

// Logger is the minimal logger the bridge needs.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Frame is the JSON envelope exchanged with the gateway.
//
//	gateway -> bot: {"type":"message","id":"...","from":"5511...@c.us","body":"1234"}
//	bot -> gateway: {"type":"send","id":"...","to":"5511...@c.us","text":"..."}
//	gateway -> bot: {"type":"ack","id":"...","error":""}
type Frame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	From  string `json:"from,omitempty"`
	Body  string `json:"body,omitempty"`
	To    string `json:"to,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	FrameMessage = "message"
	FrameSend    = "send"
	FrameAck     = "ack"

	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 64 << 10
)

// InboundHandler receives gateway messages.
type InboundHandler func(ctx context.Context, senderID, body string) error

// Bridge holds the single gateway connection. A new connection replaces the
// previous one.
type Bridge struct {
	upgrader websocket.Upgrader
	logger   Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	wmu     sync.Mutex
	inbound InboundHandler

	pmu     sync.Mutex
	pending map[string]chan Frame
}

// NewBridge constructs a bridge with no gateway attached.
func NewBridge(logger Logger) *Bridge {
	return &Bridge{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		pending:  make(map[string]chan Frame),
	}
}

// OnMessage sets the handler inbound messages are delivered to.
func (b *Bridge) OnMessage(h InboundHandler) {
	b.mu.Lock()
	b.inbound = h
	b.mu.Unlock()
}

// Connected reports whether a gateway is attached.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

// ServeWS upgrades the gateway connection. Callers authenticate the request first.
func (b *Bridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Errorf("bridge ws upgrade failed: %v", err)
		return
	}

	b.mu.Lock()
	if old := b.conn; old != nil {
		_ = old.Close()
	}
	b.conn = conn
	b.mu.Unlock()
	b.logger.Infof("bridge: gateway connected from %s", r.RemoteAddr)

	go b.readLoop(conn)
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		b.failPending("gateway disconnected")
		b.logger.Infof("bridge: gateway disconnected")
	}()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		if mt != websocket.TextMessage {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(msg)), "ping") {
			_ = b.write(conn, []byte("pong"))
			continue
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			b.logger.Errorf("bridge: bad frame: %v", err)
			continue
		}
		switch f.Type {
		case FrameMessage:
			b.deliver(f)
		case FrameAck:
			b.resolve(f)
		default:
			b.logger.Errorf("bridge: unknown frame type %q", f.Type)
		}
	}
}

func (b *Bridge) deliver(f Frame) {
	b.mu.RLock()
	h := b.inbound
	b.mu.RUnlock()
	if h == nil {
		b.logger.Errorf("bridge: no inbound handler, message %s dropped", f.ID)
		return
	}
	if err := h(context.Background(), f.From, f.Body); err != nil {
		b.logger.Errorf("bridge: inbound message %s from %s: %v", f.ID, f.From, err)
	}
}

func (b *Bridge) resolve(f Frame) {
	b.pmu.Lock()
	ch, ok := b.pending[f.ID]
	delete(b.pending, f.ID)
	b.pmu.Unlock()
	if ok {
		ch <- f
	}
}

func (b *Bridge) failPending(reason string) {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	for id, ch := range b.pending {
		ch <- Frame{Type: FrameAck, ID: id, Error: reason}
		delete(b.pending, id)
	}
}

func (b *Bridge) write(conn *websocket.Conn, data []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Send delivers text to a recipient and waits for the gateway's ack until
// ctx is done. Bare phone numbers are turned into chat ids.
func (b *Bridge) Send(ctx context.Context, to, text string) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return models.ErrBridgeOffline
	}

	f := Frame{Type: FrameSend, ID: uuid.NewString(), To: phoneutil.ChatID(to), Text: text}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	ack := make(chan Frame, 1)
	b.pmu.Lock()
	b.pending[f.ID] = ack
	b.pmu.Unlock()
	defer func() {
		b.pmu.Lock()
		delete(b.pending, f.ID)
		b.pmu.Unlock()
	}()

	if err := b.write(conn, data); err != nil {
		return fmt.Errorf("%w: %v", models.ErrSendFailed, err)
	}
	select {
	case a := <-ack:
		if a.Error != "" {
			return fmt.Errorf("%w: %s", models.ErrSendFailed, a.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: no ack: %v", models.ErrSendFailed, ctx.Err())
	}
}
