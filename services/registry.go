package services

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"dashboard/models"
)

// IncomingMessage はレジストリに追加するメッセージの入力。
// Kindはtext/audio/fileのいずれか（空はtext扱い）。
type IncomingMessage struct {
	Text      string
	Kind      string
	FileName  string
	IsBot     bool
	IsAgent   bool
	Timestamp string
}

// Registry は会話集約のインメモリな正本。唯一の書き込み経路であり、
// 変更とブロードキャスト投入は同一ロック内で直列化される。
type Registry struct {
	mu     sync.Mutex
	convs  map[string]*models.Conversation
	order  []string // 登録順（一覧ソートのタイブレーク用）
	lastID int64

	hub   *Hub
	store ConversationStore
}

func NewRegistry() *Registry {
	return &Registry{
		convs: make(map[string]*models.Conversation),
	}
}

// SetHub はファンアウト先を設定します（nil可）
func (r *Registry) SetHub(h *Hub) {
	r.mu.Lock()
	r.hub = h
	r.mu.Unlock()
}

// SetStore は書き込み先のリポジトリを設定します（nil可、best-effort）
func (r *Registry) SetStore(s ConversationStore) {
	r.mu.Lock()
	r.store = s
	r.mu.Unlock()
}

// nextID は到着順で単調増加するメッセージIDを払い出します
func (r *Registry) nextID() string {
	id := time.Now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return strconv.FormatInt(id, 10)
}

// UpsertMessage は会話がなければ作成し、メッセージを追記して
// プレビューと未読数を更新し、更新後の集約を全ビューアへ配信します。
func (r *Registry) UpsertMessage(userID, userName string, in IncomingMessage) (*models.Conversation, models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[userID]
	if !ok {
		name := userName
		if name == "" {
			name = "Usuário " + userID
		}
		conv = &models.Conversation{
			UserID:   userID,
			UserName: name,
			Messages: []models.Message{},
		}
		r.convs[userID] = conv
		r.order = append(r.order, userID)
	}

	ts := in.Timestamp
	if ts == "" {
		ts = GetCurrentTimestamp()
	}

	msg := models.Message{
		ID:        r.nextID(),
		Text:      in.Text,
		Kind:      in.Kind,
		FileName:  in.FileName,
		IsBot:     in.IsBot,
		IsAgent:   in.IsAgent,
		Timestamp: ts,
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastMessage = msg.Preview()
	conv.LastTimestamp = msg.Timestamp
	if !in.IsBot && !in.IsAgent {
		conv.Unread++
	}

	snapshot := conv.Clone()
	r.publishLocked(userID, snapshot)
	r.persistLocked(userID, snapshot)
	return snapshot, msg
}

// Get は集約のコピーを返します。存在しなければ (nil, false)。
func (r *Registry) Get(userID string) (*models.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[userID]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// Open は閲覧時の取得。既読化してから集約のコピーを返します。
func (r *Registry) Open(userID string) (*models.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[userID]
	if !ok {
		return nil, false
	}
	conv.Unread = 0
	snapshot := conv.Clone()
	r.markReadStoreLocked(userID)
	return snapshot, true
}

// List は最終更新の新しい順に全集約のコピーを返します。
// タイムスタンプが同じ場合は登録順を維持する。
func (r *Registry) List() []*models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []*models.Conversation {
	list := make([]*models.Conversation, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.convs[id].Clone())
	}
	sort.SliceStable(list, func(i, j int) bool {
		ti := parseTimestamp(list[i].LastTimestamp)
		tj := parseTimestamp(list[j].LastTimestamp)
		return ti.After(tj)
	})
	return list
}

// MarkRead は未読数を0にします。会話がなければfalse（エラーではない）。
func (r *Registry) MarkRead(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[userID]
	if !ok {
		return false
	}
	conv.Unread = 0
	r.markReadStoreLocked(userID)
	return true
}

// SetOnHold は保留フラグを切り替え、更新後の集約を配信します
func (r *Registry) SetOnHold(userID string, onHold bool) (*models.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[userID]
	if !ok {
		return nil, false
	}
	conv.OnHold = onHold
	snapshot := conv.Clone()
	r.publishLocked(userID, snapshot)
	if r.store != nil {
		store := r.store
		go func() {
			if _, err := store.SetOnHold(context.Background(), userID, onHold); err != nil {
				log.Printf("Error persisting on-hold flag for %s: %v", userID, err)
			}
		}()
	}
	return snapshot, true
}

// SetLabel はラベルを設定（nilで解除）し、更新後の集約を配信します
func (r *Registry) SetLabel(userID string, labelID *string) (*models.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[userID]
	if !ok {
		return nil, false
	}
	conv.LabelID = labelID
	snapshot := conv.Clone()
	r.publishLocked(userID, snapshot)
	r.persistLocked(userID, snapshot)
	return snapshot, true
}

// LoadFromStore は起動時にリポジトリから集約を読み戻します
func (r *Registry) LoadFromStore(ctx context.Context) error {
	r.mu.Lock()
	store := r.store
	r.mu.Unlock()
	if store == nil {
		return nil
	}

	convs, err := store.FindAll(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range convs {
		if _, ok := r.convs[conv.UserID]; ok {
			continue
		}
		r.convs[conv.UserID] = conv.Clone()
		r.order = append(r.order, conv.UserID)
		for _, m := range conv.Messages {
			if id, err := strconv.ParseInt(m.ID, 10, 64); err == nil && id > r.lastID {
				r.lastID = id
			}
		}
	}
	log.Printf("Loaded %d conversations from store", len(convs))
	return nil
}

// attachViewer はスナップショット送信とファンアウト集合への追加を
// レジストリのロック内で行い、初期状態の取りこぼしを防ぎます。
func (r *Registry) attachViewer(c *viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.enqueue(Event{Event: "init", Data: r.listLocked()})
	if r.hub != nil {
		r.hub.add(c)
	}
}

func (r *Registry) publishLocked(userID string, conv *models.Conversation) {
	if r.hub != nil {
		r.hub.Broadcast(userID, conv)
	}
}

// persistLocked はリポジトリへの書き込みを非同期・best-effortで行います。
// ローカルの状態が正であり、永続化の失敗で巻き戻すことはない。
func (r *Registry) persistLocked(userID string, conv *models.Conversation) {
	if r.store == nil {
		return
	}
	store := r.store
	go func() {
		if _, err := store.CreateOrUpdate(context.Background(), userID, conv); err != nil {
			log.Printf("Error persisting conversation %s: %v", userID, err)
		}
	}()
}

func (r *Registry) markReadStoreLocked(userID string) {
	if r.store == nil {
		return
	}
	store := r.store
	go func() {
		if err := store.MarkAsRead(context.Background(), userID); err != nil {
			log.Printf("Error marking conversation %s as read: %v", userID, err)
		}
	}()
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
