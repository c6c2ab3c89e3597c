package sink

import (
	"net/http"
	"sync"
	"time"

	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeDeadline = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub broadcasts every event to the connected websocket clients.
// Slow or broken clients are dropped.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	logger  logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{clients: make(map[*websocket.Conn]bool), logger: logger}
}

// ServeHTTP upgrades the request and keeps the client until it goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("failed to upgrade connection")
		return
	}
	h.AddClient(conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.RemoveClient(conn)
				return
			}
		}
	}()
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client concurrently and drops the ones that fail
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	failed := []*websocket.Conn{}
	for _, conn := range clients {
		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			c.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				failedMu.Lock()
				failed = append(failed, c)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()
	for _, conn := range failed {
		h.RemoveClient(conn)
	}
}

func (h *Hub) OnMeasurement(e models.MeasurementEvent) {
	b, err := Encode(e)
	if err != nil {
		h.logger.WithError(err).Warn("could not encode event")
		return
	}
	h.Broadcast(b)
}

func (h *Hub) OnInternalError(err error) {
	b, e := EncodeError(err, time.Now())
	if e != nil {
		return
	}
	h.Broadcast(b)
}
