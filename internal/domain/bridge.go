package domain

import "time"

// Frame is one sandboxed rendering of a document. Every render opens a new
// frame; the token changes with it, so messages from a replaced frame can be
// told apart from the current one.
type Frame struct {
	ID        string    `json:"frame_id"`
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	Origin    string    `json:"origin"`
	Document  Document  `json:"-"`
	OpenedAt  time.Time `json:"opened_at"`
}

// ConsoleData is the payload of a console event.
type ConsoleData struct {
	Level   LogLevel `json:"level"`
	Content string   `json:"content"`
}

// BridgeMessage is what a preview frame posts to the host.
type BridgeMessage struct {
	FrameID string          `json:"frameId" validate:"required"`
	Token   string          `json:"token" validate:"required"`
	Type    BridgeEventType `json:"type" validate:"required"`
	Data    ConsoleData     `json:"data"`
}

// BridgeEvent is an accepted bridge message, as delivered to subscribers.
type BridgeEvent struct {
	SessionID string          `json:"session_id"`
	FrameID   string          `json:"frame_id"`
	Type      BridgeEventType `json:"type"`
	Level     LogLevel        `json:"level"`
	Content   string          `json:"content"`
	Ts        int64           `json:"ts"`
}
