package handler

import (
	"anonchat/backend/internal/chathub"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

const tokenReadTimeout = 10 * time.Second

// JoinChat upgrades the request to a WebSocket and connects the caller
// to a chat session. The first frame the client sends must be its JWT;
// authentication happens over the socket because browsers cannot set
// headers on WebSocket requests.
func (h *Handler) JoinChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Websocket connection is required"})
		return
	}

	sess, err := h.Registry.LookupOrLoad(chatID)
	if err != nil {
		closeWith(conn, "Chat not found")
		return
	}

	// Receive the token as the first frame.
	conn.SetReadDeadline(time.Now().Add(tokenReadTimeout))
	_, token, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		h.Registry.RetireIfEmpty(chatID)
		return
	}

	userID, err := h.Auth.Verify(string(token))
	if err != nil {
		closeWith(conn, "Invalid JWT token")
		h.Registry.RetireIfEmpty(chatID)
		return
	}

	client := chathub.NewWebSocketClient(userID, conn, sess, h.Registry)
	// Attach through the registry: the session may have been retired
	// while the client was sending its token.
	h.Registry.Attach(sess, userID, client)

	// Blocks until the socket closes; detach and retire happen inside.
	client.Run()
}

func closeWith(conn *websocket.Conn, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseUnsupportedData, reason),
		time.Now().Add(time.Second))
	conn.Close()
}
