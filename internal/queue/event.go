// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/backend-service-lab3/internal/model"

// ItemCreatedEvent is published after an item is appended to the store.
// Index is the position the item was stored at.
type ItemCreatedEvent struct {
	Index     int        `json:"index"`
	Item      model.Item `json:"item"`
	RequestID string     `json:"request_id"`
	CreatedAt string     `json:"created_at"`
}
