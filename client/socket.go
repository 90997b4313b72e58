package client

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event はプッシュチャネルのワイヤ形式
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler はイベント購読のコールバック
type Handler func(data json.RawMessage)

// SocketConfig は接続と再接続の設定。
// 再接続は試行回数つきで、遅延は線形に伸びて上限で頭打ちになる。
type SocketConfig struct {
	URL                  string
	ReconnectionAttempts int               // 既定5
	ReconnectionDelay    time.Duration     // 既定1秒
	ReconnectionDelayMax time.Duration     // 既定5秒
	Dialer               *websocket.Dialer // テスト用に差し替え可能
}

func (c SocketConfig) withDefaults() SocketConfig {
	if c.ReconnectionAttempts == 0 {
		c.ReconnectionAttempts = 5
	}
	if c.ReconnectionDelay == 0 {
		c.ReconnectionDelay = 1 * time.Second
	}
	if c.ReconnectionDelayMax == 0 {
		c.ReconnectionDelayMax = 5 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	return c
}

// Socket はサーバーのプッシュチャネルへの接続ハンドル
type Socket struct {
	cfg      SocketConfig
	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]Handler
	closed   bool
}

var (
	socketMu       sync.Mutex
	socketInstance *Socket
)

// Connect はプロセスに1つだけの接続を返します。
// 既に確立済みなら設定に関わらず同じハンドルを返す。
func Connect(cfg SocketConfig) (*Socket, error) {
	socketMu.Lock()
	defer socketMu.Unlock()

	if socketInstance != nil {
		return socketInstance, nil
	}

	s := &Socket{
		cfg:      cfg.withDefaults(),
		handlers: make(map[string][]Handler),
	}
	if err := s.dial(); err != nil {
		// チャネルを確立できないのは設定不良。黙殺せず呼び出し元に返す。
		return nil, fmt.Errorf("failed to establish push channel: %v", err)
	}
	go s.readLoop()

	socketInstance = s
	return s, nil
}

// Teardown は接続を破棄しシングルトンをリセットします（テストの後始末用）
func Teardown() {
	socketMu.Lock()
	defer socketMu.Unlock()
	if socketInstance != nil {
		socketInstance.close()
		socketInstance = nil
	}
}

// On はイベントの購読を追加します。他の購読には影響しない。
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	s.handlers[event] = append(s.handlers[event], h)
	s.mu.Unlock()
}

// Off は購読を解除します（関数の同一性で照合）
func (s *Socket) Off(event string, h Handler) {
	ptr := reflect.ValueOf(h).Pointer()
	s.mu.Lock()
	defer s.mu.Unlock()
	handlers := s.handlers[event]
	for i, registered := range handlers {
		if reflect.ValueOf(registered).Pointer() == ptr {
			s.handlers[event] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit はサーバーへイベントを送信します。fire-and-forgetで失敗はログのみ。
func (s *Socket) Emit(event string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(map[string]interface{}{"event": event, "data": data}); err != nil {
		log.Printf("Failed to emit %s: %v", event, err)
	}
}

// IsConnected は現在接続中かどうかを返します
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}

func (s *Socket) dial() error {
	conn, _, err := s.cfg.Dialer.Dial(s.cfg.URL, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *Socket) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		closed := s.closed
		s.mu.Unlock()
		if closed || conn == nil {
			return
		}

		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			s.mu.Lock()
			closed = s.closed
			s.conn = nil
			s.mu.Unlock()
			if closed {
				return
			}
			// サーバー側から切られた場合も待たずに自分から繋ぎ直す
			log.Printf("Push channel disconnected: %v", err)
			if !s.reconnect() {
				log.Printf("Push channel gave up after %d reconnection attempts", s.cfg.ReconnectionAttempts)
				return
			}
			continue
		}

		s.dispatch(ev)
	}
}

// reconnect は線形に伸びる遅延（上限あり）で再接続を試みます
func (s *Socket) reconnect() bool {
	for attempt := 1; attempt <= s.cfg.ReconnectionAttempts; attempt++ {
		delay := s.cfg.ReconnectionDelay * time.Duration(attempt)
		if delay > s.cfg.ReconnectionDelayMax {
			delay = s.cfg.ReconnectionDelayMax
		}
		time.Sleep(delay)

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return false
		}

		if err := s.dial(); err != nil {
			log.Printf("Reconnection attempt %d failed: %v", attempt, err)
			continue
		}
		log.Printf("Push channel reconnected (attempt %d)", attempt)
		return true
	}
	return false
}

func (s *Socket) dispatch(ev Event) {
	s.mu.Lock()
	handlers := append([]Handler(nil), s.handlers[ev.Event]...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev.Data)
	}
}

func (s *Socket) close() {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
