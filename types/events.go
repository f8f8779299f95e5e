package types

import "time"

// EventType discriminates the events the stream driver emits.
type EventType string

// Event types.
const (
	// EventTypeFrameLoaded carries one encoded image frame.
	EventTypeFrameLoaded EventType = "frame_loaded"
	// EventTypeStatus carries a progress message (connected, reconnecting).
	EventTypeStatus EventType = "status"
	// EventTypeError carries a human-readable failure description.
	EventTypeError EventType = "error"
)

// IsDroppable returns true if a delivery policy may drop events of this type.
// Only frames are droppable: a newer frame supersedes an older one.
func (e EventType) IsDroppable() bool {
	return e == EventTypeFrameLoaded
}

// Event is the envelope for everything the driver hands to the outside world.
// Both msgpack (ipc, redis) and json (webhook) encodings are supported.
type Event struct {
	// ContractVersion is the envelope version.
	ContractVersion string `msgpack:"contract_version" json:"contract_version"`
	// SessionID is the watch session that produced the event.
	SessionID string `msgpack:"session_id,omitempty" json:"session_id,omitempty"`
	// ConnID identifies the HTTP connection the event belongs to, when any.
	ConnID string `msgpack:"conn_id,omitempty" json:"conn_id,omitempty"`
	// Seq is the monotonic event sequence number within the session, starts at 1.
	Seq int64 `msgpack:"seq" json:"seq"`
	// Type is the event type discriminator.
	Type EventType `msgpack:"type" json:"type"`
	// Ts is the event timestamp in RFC 3339 UTC format.
	Ts string `msgpack:"ts" json:"ts"`
	// Message is the status or error text. Empty for frames.
	Message string `msgpack:"message,omitempty" json:"message,omitempty"`
	// Frame is the frame payload. Nil unless Type is frame_loaded.
	Frame *Frame `msgpack:"frame,omitempty" json:"frame,omitempty"`
}

// IsZero reports whether e carries nothing observable.
func (e *Event) IsZero() bool {
	return e == nil || e.Type == ""
}

// Frame is one decoded multipart payload: an encoded still image.
// The receiver owns Data; the driver keeps no reference to it.
type Frame struct {
	// Seq is the frame number within the session, starts at 1.
	Seq int64 `msgpack:"seq" json:"seq"`
	// Size is len(Data), kept for consumers that drop Data.
	Size int `msgpack:"size" json:"size"`
	// Data is the encoded image bytes (typically JPEG).
	Data []byte `msgpack:"data" json:"data"`
}

// NewStatusEvent creates a status event with the given message.
func NewStatusEvent(message string) Event {
	return Event{ContractVersion: ContractVersion, Type: EventTypeStatus, Message: message}
}

// NewErrorEvent creates an error event with the given message.
func NewErrorEvent(message string) Event {
	return Event{ContractVersion: ContractVersion, Type: EventTypeError, Message: message}
}

// NewFrameEvent creates a frame event that takes ownership of data.
func NewFrameEvent(data []byte) Event {
	return Event{
		ContractVersion: ContractVersion,
		Type:            EventTypeFrameLoaded,
		Frame:           &Frame{Size: len(data), Data: data},
	}
}

// FormatTimestamp renders t the way Event.Ts expects.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
