package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// SSEHub manages Server-Sent Events connections for live campaign progress
type SSEHub struct {
	// Key format: "entity_type:entity_id", e.g. "campaign:<id>"
	clients map[string]map[chan []byte]bool
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]map[chan []byte]bool),
	}
}

// RegisterClient registers a new SSE client for an entity
func (h *SSEHub) RegisterClient(entityType, entityID string) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := fmt.Sprintf("%s:%s", entityType, entityID)
	clientChan := make(chan []byte, 10)

	if h.clients[key] == nil {
		h.clients[key] = make(map[chan []byte]bool)
	}
	h.clients[key][clientChan] = true

	logrus.Debugf("SSE client registered for %s (total clients: %d)", key, len(h.clients[key]))
	return clientChan
}

// UnregisterClient unregisters an SSE client
func (h *SSEHub) UnregisterClient(entityType, entityID string, clientChan chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := fmt.Sprintf("%s:%s", entityType, entityID)
	if h.clients[key] != nil {
		if _, ok := h.clients[key][clientChan]; ok {
			delete(h.clients[key], clientChan)
			close(clientChan)
		}
		if len(h.clients[key]) == 0 {
			delete(h.clients, key)
		}
	}

	logrus.Debugf("SSE client unregistered for %s (remaining clients: %d)", key, len(h.clients[key]))
}

// BroadcastProgress sends a progress event to every client watching the campaign
func (h *SSEHub) BroadcastProgress(p *models.CampaignProgress) {
	h.broadcast("campaign", p.CampaignID, "progress", p)
}

func (h *SSEHub) broadcast(entityType, entityID, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	key := fmt.Sprintf("%s:%s", entityType, entityID)
	clients := h.clients[key]
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("Failed to marshal %s event for SSE: %v", event, err)
		return
	}
	message := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))

	// non-blocking: a slow client misses events rather than stalling senders
	for clientChan := range clients {
		select {
		case clientChan <- message:
		default:
			logrus.Warnf("SSE client channel full, skipping: %s", key)
		}
	}
}

// GetClientCount returns the number of clients for a specific entity
func (h *SSEHub) GetClientCount(entityType, entityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	key := fmt.Sprintf("%s:%s", entityType, entityID)
	return len(h.clients[key])
}
