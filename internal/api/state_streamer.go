package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pv/algoviz-go/internal/playback"
	"github.com/pv/algoviz-go/internal/trace"
)

const (
	wsSendBuffer   = 64
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
)

// Типы сообщений потока.
const (
	MessageSnapshot = "snapshot"
	MessageState    = "state"
	MessageClosed   = "closed"
)

// StreamMessage: сообщение потока сессии: "snapshot" при подключении,
// "state" после каждого изменения, "closed" при удалении сессии.
type StreamMessage struct {
	Type     string          `json:"type"`
	Session  string          `json:"session"`
	State    *playback.State `json:"state,omitempty"`
	Snapshot *trace.Snapshot `json:"snapshot,omitempty"`
}

// StateStreamer рассылает изменения состояния сессий подписанным WebSocket-клиентам.
type StateStreamer struct {
	mu       sync.Mutex
	clients  map[string]map[*wsClient]struct{}
	upgrader websocket.Upgrader
}

// NewStateStreamer создаёт пустой стример.
func NewStateStreamer() *StateStreamer {
	return &StateStreamer{
		clients: map[string]map[*wsClient]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Publish отправляет новое состояние всем клиентам сессии.
func (s *StateStreamer) Publish(sessionID string, st playback.State, snap *trace.Snapshot) {
	s.broadcast(sessionID, StreamMessage{Type: MessageState, Session: sessionID, State: &st, Snapshot: snap})
}

// CloseSession уведомляет клиентов об удалении сессии и отключает их.
func (s *StateStreamer) CloseSession(sessionID string) {
	s.broadcast(sessionID, StreamMessage{Type: MessageClosed, Session: sessionID})
	s.mu.Lock()
	clients := s.clients[sessionID]
	delete(s.clients, sessionID)
	s.mu.Unlock()
	for c := range clients {
		c.finish()
	}
}

// Clients возвращает количество клиентов сессии.
func (s *StateStreamer) Clients(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients[sessionID])
}

// ServeWS поднимает WebSocket и подписывает клиента на сессию.
// Первым сообщением идёт снимок текущего состояния.
func (s *StateStreamer) ServeWS(w http.ResponseWriter, r *http.Request, sess *Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		logDebugf("[ws] upgrade failed: %v", err)
		return
	}
	client := newWSClient(conn)

	info := sess.Info()
	first, err := json.Marshal(StreamMessage{Type: MessageSnapshot, Session: sess.ID, State: &info.State, Snapshot: info.Snapshot})
	if err != nil {
		_ = conn.Close()
		return
	}
	client.send <- first

	s.mu.Lock()
	if s.clients[sess.ID] == nil {
		s.clients[sess.ID] = map[*wsClient]struct{}{}
	}
	s.clients[sess.ID][client] = struct{}{}
	s.mu.Unlock()
	streamClients.Inc()
	logDebugf("[ws] client %s subscribed to %s", conn.RemoteAddr(), sess.ID)

	go client.writePump()
	go client.readPump(func() { s.removeClient(sess.ID, client) })
}

func (s *StateStreamer) removeClient(sessionID string, c *wsClient) {
	s.mu.Lock()
	if set, ok := s.clients[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(s.clients, sessionID)
		}
	}
	s.mu.Unlock()
	c.finish()
}

func (s *StateStreamer) broadcast(sessionID string, msg StreamMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.clients[sessionID]
	if len(set) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for c := range set {
		select {
		case c.send <- data:
		default:
			// Медленный клиент отключается, иначе он задержит оповещения контроллера.
			delete(set, c)
			go c.finish()
		}
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
}

// finish останавливает writePump; тот дописывает очередь и закрывает соединение.
func (c *wsClient) finish() {
	c.once.Do(func() {
		close(c.done)
		streamClients.Dec()
	})
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	write := func(data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return c.conn.WriteMessage(websocket.TextMessage, data)
	}
	for {
		select {
		case data := <-c.send:
			if err := write(data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case data := <-c.send:
					if err := write(data); err != nil {
						return
					}
				default:
					_ = c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(wsWriteTimeout))
					return
				}
			}
		}
	}
}

// readPump нужен для обработки control-фреймов; входящие данные игнорируются.
func (c *wsClient) readPump(onClose func()) {
	defer onClose()
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
