package chathub

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketClient реалізує інтерфейс chathub.Conn поверх gorilla/websocket.
type WebSocketClient struct {
	userID   string
	conn     *websocket.Conn
	session  *ChatSession
	registry *SessionRegistry

	send chan []byte
	once sync.Once
	done chan struct{}
}

// NewWebSocketClient wraps an upgraded connection for the given session.
func NewWebSocketClient(userID string, conn *websocket.Conn, session *ChatSession, registry *SessionRegistry) *WebSocketClient {
	return &WebSocketClient{
		userID:   userID,
		conn:     conn,
		session:  session,
		registry: registry,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *WebSocketClient) UserID() string { return c.userID }

// Send enqueues a payload for the write pump. It never blocks: a closed
// client or a full buffer (a consumer too slow to drain it) reports
// ErrConnectionLost and the session drops the connection.
func (c *WebSocketClient) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionLost
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnectionLost
	default:
		return ErrConnectionLost
	}
}

// Close зупиняє обидва 'pumps'. Safe to call more than once.
func (c *WebSocketClient) Close() {
	c.once.Do(func() { close(c.done) })
}

// Run starts the write pump and then reads from the socket until it
// closes. It returns only when the connection is finished and the user
// has been detached from the session.
func (c *WebSocketClient) Run() {
	go c.writePump()
	c.readPump()
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.session.Detach(c.userID, c)
		c.registry.RetireIfEmpty(c.session.ID())
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("error reading message from user %s: %v", c.userID, err)
			}
			break
		}

		text := string(raw)
		if text == "" {
			continue
		}
		c.session.HandleIncoming(c.userID, text)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
