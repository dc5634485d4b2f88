package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/docbridge/backend/internal/infrastructure/log"
	"github.com/docbridge/backend/internal/infrastructure/websocket"
	"github.com/docbridge/backend/internal/interfaces/http/response"
)

// 写超时与心跳间隔
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// 可订阅的主题
var subscribableTopics = map[string]bool{
	websocket.TopicJobs:        true,
	websocket.TopicConsistency: true,
}

// WSHandler WebSocket 订阅处理器
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 订阅处理器
func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本机服务，允许所有来源
			},
		},
		logger: log.NewModuleLogger("http", "websocket"),
	}
}

// Subscribe 订阅主题推送
// GET /ws/:topic
func (h *WSHandler) Subscribe(c *gin.Context) {
	topic := c.Param("topic")
	if !subscribableTopics[topic] {
		response.Error(c, http.StatusBadRequest, 400, "unknown topic: "+topic)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &websocket.Connection{
		Topic: topic,
		Send:  make(chan []byte, 256),
	}
	h.hub.Register(client)

	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

// writePump 把 Hub 推送的消息写入连接，定期发心跳
func (h *WSHandler) writePump(conn *gorillaws.Conn, client *websocket.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已关闭该连接
				_ = conn.WriteMessage(gorillaws.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只用于感知客户端断开
func (h *WSHandler) readPump(conn *gorillaws.Conn, client *websocket.Connection) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
