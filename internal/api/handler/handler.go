package handler

import (
	"anonchat/backend/internal/auth"
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/storage"
)

// Handler тримає посилання на сервіси, які обслуговують HTTP-запити.
type Handler struct {
	Auth     *auth.Service
	Broker   *chathub.MatchBroker
	Registry *chathub.SessionRegistry
	Storage  storage.Gateway
}

func NewHandler(a *auth.Service, b *chathub.MatchBroker, r *chathub.SessionRegistry, s storage.Gateway) *Handler {
	return &Handler{Auth: a, Broker: b, Registry: r, Storage: s}
}
