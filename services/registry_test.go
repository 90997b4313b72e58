package services

import (
	"strconv"
	"testing"

	"dashboard/models"
)

func TestUpsertMessageCreatesConversation(t *testing.T) {
	r := NewRegistry()

	conv, msg := r.UpsertMessage("u1", "Maria", IncomingMessage{Text: "oi", IsBot: false})

	if conv.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", conv.UserID)
	}
	if conv.UserName != "Maria" {
		t.Errorf("UserName = %q, want Maria", conv.UserName)
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(conv.Messages))
	}
	if conv.LastMessage != "oi" {
		t.Errorf("LastMessage = %q, want oi", conv.LastMessage)
	}
	if conv.Unread != 1 {
		t.Errorf("Unread = %d, want 1", conv.Unread)
	}
	if msg.ID == "" {
		t.Error("message ID is empty")
	}
	if conv.LastTimestamp != msg.Timestamp {
		t.Errorf("LastTimestamp = %q, want %q", conv.LastTimestamp, msg.Timestamp)
	}
}

func TestUpsertMessageDefaultUserName(t *testing.T) {
	r := NewRegistry()

	conv, _ := r.UpsertMessage("5511999", "", IncomingMessage{Text: "oi", IsBot: true})

	if conv.UserName != "Usuário 5511999" {
		t.Errorf("UserName = %q, want Usuário 5511999", conv.UserName)
	}
}

func TestLastMessageTracksLatest(t *testing.T) {
	r := NewRegistry()

	for i := 1; i <= 5; i++ {
		r.UpsertMessage("u1", "", IncomingMessage{
			Text:      "msg" + strconv.Itoa(i),
			IsBot:     true,
			Timestamp: "2026-08-30T10:0" + strconv.Itoa(i) + ":00Z",
		})
	}

	conv, ok := r.Get("u1")
	if !ok {
		t.Fatal("conversation not found")
	}
	if len(conv.Messages) != 5 {
		t.Errorf("len(Messages) = %d, want 5", len(conv.Messages))
	}
	if conv.LastMessage != "msg5" {
		t.Errorf("LastMessage = %q, want msg5", conv.LastMessage)
	}
	if conv.LastTimestamp != "2026-08-30T10:05:00Z" {
		t.Errorf("LastTimestamp = %q", conv.LastTimestamp)
	}
}

func TestUnreadCounting(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 3; i++ {
		r.UpsertMessage("u1", "", IncomingMessage{Text: "oi", IsBot: false})
	}
	conv, _ := r.Get("u1")
	if conv.Unread != 3 {
		t.Errorf("Unread = %d, want 3", conv.Unread)
	}

	// bot・担当者のメッセージでは増えない
	r.UpsertMessage("u1", "", IncomingMessage{Text: "resposta", IsBot: true})
	r.UpsertMessage("u1", "", IncomingMessage{Text: "manual", IsBot: false, IsAgent: true})
	conv, _ = r.Get("u1")
	if conv.Unread != 3 {
		t.Errorf("Unread after bot/agent messages = %d, want 3", conv.Unread)
	}

	if !r.MarkRead("u1") {
		t.Fatal("MarkRead returned false")
	}
	conv, _ = r.Get("u1")
	if conv.Unread != 0 {
		t.Errorf("Unread after MarkRead = %d, want 0", conv.Unread)
	}
}

func TestMarkReadMissingConversation(t *testing.T) {
	r := NewRegistry()
	if r.MarkRead("missing") {
		t.Error("MarkRead on missing conversation should return false")
	}
}

func TestOpenMarksReadAndIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.UpsertMessage("u1", "", IncomingMessage{Text: "oi", IsBot: false})

	for i := 0; i < 3; i++ {
		conv, ok := r.Open("u1")
		if !ok {
			t.Fatal("conversation not found")
		}
		if conv.Unread != 0 {
			t.Errorf("Unread = %d, want 0", conv.Unread)
		}
		if len(conv.Messages) != 1 {
			t.Errorf("len(Messages) = %d, want 1", len(conv.Messages))
		}
	}
}

func TestOpenMissingConversation(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Open("missing"); ok {
		t.Error("Open on missing conversation should return false")
	}
}

func TestListOrderedByRecency(t *testing.T) {
	r := NewRegistry()
	r.UpsertMessage("u1", "", IncomingMessage{Text: "a", IsBot: true, Timestamp: "2026-08-30T10:00:00Z"})
	r.UpsertMessage("u2", "", IncomingMessage{Text: "b", IsBot: true, Timestamp: "2026-08-30T12:00:00Z"})
	r.UpsertMessage("u3", "", IncomingMessage{Text: "c", IsBot: true, Timestamp: "2026-08-30T11:00:00Z"})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	want := []string{"u2", "u3", "u1"}
	for i, userID := range want {
		if list[i].UserID != userID {
			t.Errorf("list[%d].UserID = %q, want %q", i, list[i].UserID, userID)
		}
	}
}

func TestListTieBrokenByInsertionOrder(t *testing.T) {
	r := NewRegistry()
	ts := "2026-08-30T10:00:00Z"
	r.UpsertMessage("first", "", IncomingMessage{Text: "a", IsBot: true, Timestamp: ts})
	r.UpsertMessage("second", "", IncomingMessage{Text: "b", IsBot: true, Timestamp: ts})
	r.UpsertMessage("third", "", IncomingMessage{Text: "c", IsBot: true, Timestamp: ts})

	list := r.List()
	want := []string{"first", "second", "third"}
	for i, userID := range want {
		if list[i].UserID != userID {
			t.Errorf("list[%d].UserID = %q, want %q", i, list[i].UserID, userID)
		}
	}
}

func TestAudioAndFilePreview(t *testing.T) {
	r := NewRegistry()

	conv, _ := r.UpsertMessage("u2", "", IncomingMessage{Text: "base64data", Kind: models.MessageKindAudio, IsBot: true})
	if conv.LastMessage != "🎤 Áudio" {
		t.Errorf("audio preview = %q, want 🎤 Áudio", conv.LastMessage)
	}

	conv, _ = r.UpsertMessage("u2", "", IncomingMessage{Text: "blob", Kind: models.MessageKindFile, FileName: "nota.pdf", IsBot: true})
	if conv.LastMessage != "📎 nota.pdf" {
		t.Errorf("file preview = %q, want 📎 nota.pdf", conv.LastMessage)
	}

	conv, _ = r.UpsertMessage("u2", "", IncomingMessage{Text: "blob", Kind: models.MessageKindFile, IsBot: true})
	if conv.LastMessage != "📎 Arquivo" {
		t.Errorf("file preview without name = %q, want 📎 Arquivo", conv.LastMessage)
	}
}

func TestMessageIDsMonotonic(t *testing.T) {
	r := NewRegistry()

	var prev int64
	for i := 0; i < 100; i++ {
		_, msg := r.UpsertMessage("u1", "", IncomingMessage{Text: "x", IsBot: true})
		id, err := strconv.ParseInt(msg.ID, 10, 64)
		if err != nil {
			t.Fatalf("message ID %q is not numeric: %v", msg.ID, err)
		}
		if id <= prev {
			t.Fatalf("message ID %d is not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestSetOnHold(t *testing.T) {
	r := NewRegistry()
	r.UpsertMessage("u1", "", IncomingMessage{Text: "oi", IsBot: true})

	conv, ok := r.SetOnHold("u1", true)
	if !ok {
		t.Fatal("SetOnHold returned false")
	}
	if !conv.OnHold {
		t.Error("OnHold should be true")
	}

	if _, ok := r.SetOnHold("missing", true); ok {
		t.Error("SetOnHold on missing conversation should return false")
	}
}

func TestSetLabel(t *testing.T) {
	r := NewRegistry()
	r.UpsertMessage("u1", "", IncomingMessage{Text: "oi", IsBot: true})

	labelID := "vip"
	conv, ok := r.SetLabel("u1", &labelID)
	if !ok {
		t.Fatal("SetLabel returned false")
	}
	if conv.LabelID == nil || *conv.LabelID != "vip" {
		t.Errorf("LabelID = %v, want vip", conv.LabelID)
	}

	conv, _ = r.SetLabel("u1", nil)
	if conv.LabelID != nil {
		t.Errorf("LabelID = %v, want nil", conv.LabelID)
	}
}

func TestCloneIsolation(t *testing.T) {
	r := NewRegistry()
	conv, _ := r.UpsertMessage("u1", "", IncomingMessage{Text: "oi", IsBot: true})

	// 返ってきたコピーを壊してもレジストリ内の正本には影響しない
	conv.Messages[0].Text = "mutated"
	conv.Unread = 99

	fresh, _ := r.Get("u1")
	if fresh.Messages[0].Text != "oi" {
		t.Errorf("registry copy was mutated: %q", fresh.Messages[0].Text)
	}
	if fresh.Unread != 0 {
		t.Errorf("Unread = %d, want 0", fresh.Unread)
	}
}
