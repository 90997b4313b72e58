package controllers

import (
	"dashboard/services"
)

// Controllers はHTTPハンドラと依存をまとめます。
// レジストリ等は明示的に注入し、テストごとに独立したインスタンスを作れるようにする。
type Controllers struct {
	Registry      *services.Registry
	Hub           *services.Hub
	Forwarder     *services.Forwarder
	Suggest       *services.SuggestService
	QuickMessages *services.QuickMessageStore
	Labels        *services.LabelStore
	ServiceOrders *services.ServiceOrderStore
}

func New(registry *services.Registry, hub *services.Hub, forwarder *services.Forwarder) *Controllers {
	return &Controllers{
		Registry:  registry,
		Hub:       hub,
		Forwarder: forwarder,
	}
}
