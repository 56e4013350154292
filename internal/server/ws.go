package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hafsaghannaj/maternal/internal/common"
	"github.com/hafsaghannaj/maternal/internal/events"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Events streams round-completed, training-finished, and registry-change
// events to the client over a WebSocket until it disconnects.
func (handler *Handler) Events(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		handler.logger.Error("error upgrading websocket", "error", err)
		return
	}
	defer conn.Close()

	eventChan := make(chan events.Event, 64)
	eventTypes := []string{
		common.ROUND_COMPLETED_EVENT_TYPE,
		common.TRAINING_FINISHED_EVENT_TYPE,
		common.HOSPITAL_STATE_CHANGE_EVENT_TYPE,
	}
	for _, eventType := range eventTypes {
		handler.eventBus.Subscribe(eventType, eventChan)
	}
	defer func() {
		for _, eventType := range eventTypes {
			handler.eventBus.Unsubscribe(eventType, eventChan)
		}
	}()

	// Reader goroutine: its only job is to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event := <-eventChan:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			payload := wsEvent{Type: event.Type, Timestamp: event.Timestamp, Data: event.Data}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}
