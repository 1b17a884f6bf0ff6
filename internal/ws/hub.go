package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/avtoscan/reports-backend/internal/goroutine"
	"github.com/avtoscan/reports-backend/internal/logger"
)

// Hub управляет WebSocket подключениями. Модераторы получают события обо
// всех новых отчётах, обычные пользователи — только о своих.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	admins     map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
}

type message struct {
	userID   uuid.UUID
	toAdmins bool
	payload  []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		admins:     make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			if msg.toAdmins {
				h.sendToAdmins(msg.payload)
			} else {
				h.sendToUser(msg.userID, msg.payload)
			}
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastToUser отправляет событие всем подключениям пользователя.
// Контракт сообщения: "type" — имя события, "data" — полезная нагрузка.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return err
	}
	h.broadcast <- message{userID: userID, payload: raw}
	return nil
}

// BroadcastToAdmins отправляет событие всем подключённым модераторам.
func (h *Hub) BroadcastToAdmins(event string, data any) error {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return err
	}
	h.broadcast <- message{toAdmins: true, payload: raw}
	return nil
}

func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}

	if client.isAdmin {
		h.admins[client] = struct{}{}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
	delete(h.admins, client)
}

func (h *Hub) sendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		h.deliver(client, payload)
	}
}

func (h *Hub) sendToAdmins(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.admins {
		h.deliver(client, payload)
	}
}

// deliver пишет в буфер клиента; переполненный буфер означает зависшее
// соединение, такой клиент закрывается.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		logger.Log.WithField("user_id", client.userID).Warn("ws: буфер клиента переполнен, закрываем соединение")
		goroutine.SafeGo(client.Close)
	}
}
