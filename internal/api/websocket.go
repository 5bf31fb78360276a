package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

type WSHub struct {
	mu            sync.RWMutex
	clients       map[*WSClient]bool
	activeScrapes map[string]json.RawMessage // javid → last scrape:update payload
	scrapesMu     sync.RWMutex
}

type WSClient struct {
	conn *websocket.Conn
	send chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:       make(map[*WSClient]bool),
		activeScrapes: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	// Track in-flight scrape state for new client sync
	if event == "scrape:update" {
		h.trackScrape(data, msg)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// trackScrape keeps a snapshot of each running scrape so new clients get current state.
func (h *WSHub) trackScrape(data interface{}, raw []byte) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return
	}
	javID, _ := m["javid"].(string)
	status, _ := m["status"].(string)
	if javID == "" {
		return
	}

	h.scrapesMu.Lock()
	defer h.scrapesMu.Unlock()
	if status == "complete" || status == "failed" || status == "no_result" {
		delete(h.activeScrapes, javID)
	} else {
		h.activeScrapes[javID] = json.RawMessage(raw)
	}
}

// sendActiveScrapes replays current scrape state to a newly connected client.
func (h *WSHub) sendActiveScrapes(client *WSClient) {
	h.scrapesMu.RLock()
	defer h.scrapesMu.RUnlock()
	for _, msg := range h.activeScrapes {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendActiveScrapes(client)
	log.Printf("WebSocket client connected: %s", r.RemoteAddr)

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader goroutine (keep connection alive, handle pings)
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
	log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
}
