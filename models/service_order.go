package models

import (
	"time"
)

// ServiceOrder はサービスオーダー。合計金額は 作業 + 部品 - 値引き。
type ServiceOrder struct {
	ID           string    `json:"id"`
	Number       string    `json:"numeroOs"`
	UserID       string    `json:"userId"`
	Description  string    `json:"descricao"`
	Status       string    `json:"status"`
	ServiceValue float64   `json:"valorServico"`
	PartsValue   float64   `json:"valorPecas"`
	Discount     float64   `json:"desconto"`
	TotalValue   float64   `json:"valorTotal"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
