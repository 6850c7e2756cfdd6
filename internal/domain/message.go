// Package domain contains core domain types for the SpeakAI application.
package domain

import (
	"time"
)

// Speaker identifies which side of the conversation produced a message.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

// Message is one entry in a conversation transcript. Messages are immutable
// once appended; the transcript only ever grows, except for a full reset.
type Message struct {
	// ID is a per-session monotonic sequence number. Ordering and tie-breaking
	// always use ID, never Timestamp: two utterances can share a clock tick.
	ID        uint64    `json:"id"`
	Text      string    `json:"text"`
	Speaker   Speaker   `json:"speaker"`
	Timestamp time.Time `json:"timestamp"`
}
