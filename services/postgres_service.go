package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"dashboard/models"
)

// NewPostgresDB はPostgreSQLへ接続し、必要なテーブルを用意します
func NewPostgresDB(postgresURI string) (*sql.DB, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else {
			connStr += "?sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}

	// 接続テスト
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %v", err)
	}

	if err := ensureTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureTables(db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS quick_messages (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			emoji TEXT DEFAULT '',
			category TEXT DEFAULT '',
			shortcut TEXT DEFAULT '',
			"order" INTEGER DEFAULT 0,
			enabled BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS service_orders (
			id TEXT PRIMARY KEY,
			numero_os TEXT UNIQUE NOT NULL,
			user_id TEXT NOT NULL,
			descricao TEXT DEFAULT '',
			status TEXT DEFAULT 'aberta',
			valor_servico NUMERIC DEFAULT 0,
			valor_pecas NUMERIC DEFAULT 0,
			desconto NUMERIC DEFAULT 0,
			valor_total NUMERIC DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}
	return nil
}

// QuickMessageStore は定型文のリポジトリ
type QuickMessageStore struct {
	db *sql.DB
}

func NewQuickMessageStore(db *sql.DB) *QuickMessageStore {
	return &QuickMessageStore{db: db}
}

// FindAll は有効な定型文を表示順で返します
func (s *QuickMessageStore) FindAll(ctx context.Context) ([]models.QuickMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, emoji, category, shortcut, "order", enabled, created_at, updated_at
		FROM quick_messages
		WHERE enabled = TRUE
		ORDER BY "order" ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quick messages: %v", err)
	}
	defer rows.Close()

	messages := make([]models.QuickMessage, 0)
	for rows.Next() {
		var qm models.QuickMessage
		if err := rows.Scan(&qm.ID, &qm.Text, &qm.Emoji, &qm.Category, &qm.Shortcut, &qm.Order, &qm.Enabled, &qm.CreatedAt, &qm.UpdatedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %v", err)
		}
		messages = append(messages, qm)
	}
	return messages, rows.Err()
}

// Create は新しい定型文を追加します。表示順は末尾。
func (s *QuickMessageStore) Create(ctx context.Context, qm models.QuickMessage) (models.QuickMessage, error) {
	var nextOrder int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX("order"), 0) + 1 FROM quick_messages`).Scan(&nextOrder)
	if err != nil {
		return models.QuickMessage{}, fmt.Errorf("failed to compute next order: %v", err)
	}

	qm.ID = uuid.New().String()
	qm.Order = nextOrder
	qm.Enabled = true
	now := time.Now()
	qm.CreatedAt = now
	qm.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quick_messages (id, text, emoji, category, shortcut, "order", enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, qm.ID, qm.Text, qm.Emoji, qm.Category, qm.Shortcut, qm.Order, qm.Enabled, qm.CreatedAt, qm.UpdatedAt)
	if err != nil {
		return models.QuickMessage{}, fmt.Errorf("failed to insert quick message: %v", err)
	}
	return qm, nil
}

// Update は定型文を更新します。存在しなければ (nil相当, false)。
func (s *QuickMessageStore) Update(ctx context.Context, id string, qm models.QuickMessage) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE quick_messages
		SET text = $2, emoji = $3, category = $4, shortcut = $5, enabled = $6, updated_at = NOW()
		WHERE id = $1
	`, id, qm.Text, qm.Emoji, qm.Category, qm.Shortcut, qm.Enabled)
	if err != nil {
		return false, fmt.Errorf("failed to update quick message: %v", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *QuickMessageStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quick_messages WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete quick message: %v", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// LabelStore は会話ラベルのリポジトリ
type LabelStore struct {
	db *sql.DB
}

func NewLabelStore(db *sql.DB) *LabelStore {
	return &LabelStore{db: db}
}

func (s *LabelStore) FindAll(ctx context.Context) ([]models.Label, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, created_at FROM labels ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %v", err)
	}
	defer rows.Close()

	labels := make([]models.Label, 0)
	for rows.Next() {
		var l models.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %v", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (s *LabelStore) Create(ctx context.Context, label models.Label) (models.Label, error) {
	label.ID = uuid.New().String()
	label.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, name, color, created_at) VALUES ($1, $2, $3, $4)
	`, label.ID, label.Name, label.Color, label.CreatedAt)
	if err != nil {
		return models.Label{}, fmt.Errorf("failed to insert label: %v", err)
	}
	return label, nil
}

func (s *LabelStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete label: %v", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ServiceOrderStore はサービスオーダーのリポジトリ
type ServiceOrderStore struct {
	db *sql.DB
}

func NewServiceOrderStore(db *sql.DB) *ServiceOrderStore {
	return &ServiceOrderStore{db: db}
}

// generateNumber は当日の連番でOS-YYYYMMDD-NNN形式の番号を払い出します
func (s *ServiceOrderStore) generateNumber(ctx context.Context) (string, error) {
	dateStr := time.Now().Format("20060102")
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM service_orders WHERE numero_os LIKE $1
	`, "OS-"+dateStr+"-%").Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count service orders: %v", err)
	}
	return fmt.Sprintf("OS-%s-%03d", dateStr, count+1), nil
}

func (s *ServiceOrderStore) FindAll(ctx context.Context) ([]models.ServiceOrder, error) {
	return s.query(ctx, `
		SELECT id, numero_os, user_id, descricao, status, valor_servico, valor_pecas, desconto, valor_total, created_at, updated_at
		FROM service_orders ORDER BY created_at DESC
	`)
}

func (s *ServiceOrderStore) FindByUserID(ctx context.Context, userID string) ([]models.ServiceOrder, error) {
	return s.query(ctx, `
		SELECT id, numero_os, user_id, descricao, status, valor_servico, valor_pecas, desconto, valor_total, created_at, updated_at
		FROM service_orders WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
}

func (s *ServiceOrderStore) query(ctx context.Context, q string, args ...interface{}) ([]models.ServiceOrder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query service orders: %v", err)
	}
	defer rows.Close()

	orders := make([]models.ServiceOrder, 0)
	for rows.Next() {
		var o models.ServiceOrder
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &o.Description, &o.Status, &o.ServiceValue, &o.PartsValue, &o.Discount, &o.TotalValue, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %v", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Create はサービスオーダーを登録します。番号未指定なら採番し、
// 合計は 作業 + 部品 - 値引き で算出する。
func (s *ServiceOrderStore) Create(ctx context.Context, order models.ServiceOrder) (models.ServiceOrder, error) {
	if order.Number == "" {
		number, err := s.generateNumber(ctx)
		if err != nil {
			return models.ServiceOrder{}, err
		}
		order.Number = number
	}
	if order.Status == "" {
		order.Status = "aberta"
	}
	order.ID = uuid.New().String()
	order.TotalValue = order.ServiceValue + order.PartsValue - order.Discount
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_orders (id, numero_os, user_id, descricao, status, valor_servico, valor_pecas, desconto, valor_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.Number, order.UserID, order.Description, order.Status,
		order.ServiceValue, order.PartsValue, order.Discount, order.TotalValue,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return models.ServiceOrder{}, fmt.Errorf("failed to insert service order: %v", err)
	}
	return order, nil
}

func (s *ServiceOrderStore) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE service_orders SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return false, fmt.Errorf("failed to update service order status: %v", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
