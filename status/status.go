// Package status streams conversion status messages to websocket clients.
package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

type message struct {
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
	Error bool      `json:"error"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	lock    sync.Mutex
	clients map[*client]bool
	last    []byte

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Attach subscribes the hub to the global status ring.
func (h *Hub) Attach() {
	utils.SetStatusHook(h.Publish)
}

func (h *Hub) Detach() {
	utils.SetStatusHook(nil)
}

// Publish sends m to every client. Slow clients lose messages.
func (h *Hub) Publish(m utils.Message) {
	data, err := json.Marshal(&message{Text: m.Text, Time: m.Time, Error: m.Type == utils.ERROR})
	if err != nil {
		logger.L().Error("status marshal", zap.String("stage", "status"), zap.Error(err))
		return
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams messages until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn("ws upgrade", zap.String("stage", "status"), zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; it ends when the connection closes.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	log := logger.L()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("ws write msg", zap.String("stage", "status"), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("ws write ping", zap.String("stage", "status"), zap.Error(err))
				return
			}
		}
	}
}
