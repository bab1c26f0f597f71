/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package model

import (
	"sync"

	"gorm.io/gorm"
)

// PickEvent announces a change to the pick table. Type is one of
// create, update or delete.
type PickEvent struct {
	Type string `json:"type"`
	Pick Pick   `json:"pick"`
}

type Model struct {
	db *gorm.DB

	mu              sync.Mutex
	pickSubscribers []chan PickEvent
}

func New(db *gorm.DB) *Model {
	return &Model{
		db:              db,
		pickSubscribers: make([]chan PickEvent, 0),
	}
}

// SubscribePickEvents returns a channel receiving pick changes. Slow
// consumers lose events, delivery never blocks the writer.
func (m *Model) SubscribePickEvents() <-chan PickEvent {
	ch := make(chan PickEvent, 10)

	m.mu.Lock()
	m.pickSubscribers = append(m.pickSubscribers, ch)
	m.mu.Unlock()

	return ch
}

// UnsubscribePickEvents removes a subscription channel again.
func (m *Model) UnsubscribePickEvents(ch <-chan PickEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.pickSubscribers {
		if sub == ch {
			m.pickSubscribers = append(m.pickSubscribers[:i], m.pickSubscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

func (m *Model) notifyPickEvent(eventType string, pick *Pick) {
	event := PickEvent{Type: eventType, Pick: *pick}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.pickSubscribers {
		select {
		case sub <- event:
		default:
		}
	}
}
