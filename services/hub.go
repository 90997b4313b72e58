package services

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dashboard/models"
)

// Event はプッシュチャネルのワイヤ形式
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// MessageEvent はmessageイベントのペイロード
type MessageEvent struct {
	UserID       string               `json:"userId"`
	Conversation *models.Conversation `json:"conversation"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub はレジストリの更新を接続中の全ビューアへ配信します。
// 配信はレジストリのロック内で各ビューアのキューに積まれるため、
// 同一会話のイベント順序は全ビューアで変更順と一致する。
type Hub struct {
	registry *Registry

	mu      sync.Mutex
	viewers map[*viewer]bool
}

func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry: registry,
		viewers:  make(map[*viewer]bool),
	}
}

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// enqueue はイベントをビューアのキューに積みます。
// キューが詰まっている場合はfalse（遅いビューアは切断対象）。
func (v *viewer) enqueue(ev Event) bool {
	select {
	case v.send <- ev:
		return true
	default:
		return false
	}
}

// ServeWS はビューアの接続を受け付けます。接続ハンドシェイクの一部として
// 全会話のスナップショット（initイベント）を先に積んでから配信集合に加える。
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	v := &viewer{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Event, 256),
	}
	log.Printf("Viewer connected: %s", v.id)

	h.registry.attachViewer(v)

	go h.writePump(v)
	h.readPump(v)
}

// Broadcast は更新後の集約を接続中の全ビューアへ配信します。
// キューに積めないビューアは追いつけないと判断して切り離す。
func (h *Hub) Broadcast(userID string, conv *models.Conversation) {
	ev := Event{
		Event: "message",
		Data:  MessageEvent{UserID: userID, Conversation: conv},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		if !v.enqueue(ev) {
			log.Printf("Viewer %s is too slow, dropping", v.id)
			delete(h.viewers, v)
			close(v.send)
		}
	}
}

// ViewerCount は接続中のビューア数を返します
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

func (h *Hub) add(v *viewer) {
	h.mu.Lock()
	h.viewers[v] = true
	h.mu.Unlock()
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[v] {
		delete(h.viewers, v)
		close(v.send)
	}
}

func (h *Hub) writePump(v *viewer) {
	defer v.conn.Close()
	for ev := range v.send {
		if err := v.conn.WriteJSON(ev); err != nil {
			log.Printf("Failed to write to viewer %s: %v", v.id, err)
			h.remove(v)
			return
		}
	}
}

// readPump はビューアからの受信を読み捨てつつ切断を検知します
func (h *Hub) readPump(v *viewer) {
	defer h.remove(v)
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Viewer %s closed unexpectedly: %v", v.id, err)
			} else {
				log.Printf("Viewer disconnected: %s", v.id)
			}
			return
		}
	}
}
