package statestore

import (
	"fmt"
	"time"
)

// defaultTTLHours is the default TTL for dialog states (24 hours).
const defaultTTLHours = 24

// SessionKey identifies a dialog session. A session is unique per bot,
// messaging platform and chat.
type SessionKey struct {
	BotID    string `json:"bot_id"`
	Platform string `json:"platform"`
	ChatID   string `json:"chat_id"`
}

// String returns the canonical "bot:platform:chat" form of the key.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.BotID, k.Platform, k.ChatID)
}

// Valid reports whether all key components are set.
func (k SessionKey) Valid() bool {
	return k.BotID != "" && k.Platform != "" && k.ChatID != ""
}

// DialogState represents stored session state in the state store.
// This is the primary data structure for persisting and loading the
// user's position in a scenario and the variables collected so far.
type DialogState struct {
	Key               SessionKey     `json:"key"`
	ScenarioName      string         `json:"scenario_name"`
	ScenarioVersion   string         `json:"scenario_version"`
	CurrentStep       string         `json:"current_step"`
	Collected         map[string]any `json:"collected,omitempty"`
	Version           int64          `json:"version"`
	LastInteractionAt time.Time      `json:"last_interaction_at"`
}

// Clone returns a deep copy of the state to prevent external mutations.
func (s *DialogState) Clone() *DialogState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Collected != nil {
		c.Collected = make(map[string]any, len(s.Collected))
		for k, v := range s.Collected {
			c.Collected[k] = v
		}
	}
	return &c
}

// HistoryEntry records a single step transition within a session.
type HistoryEntry struct {
	FromStep  string    `json:"from_step"`
	ToStep    string    `json:"to_step"`
	Trigger   string    `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// Transition trigger values recorded in history entries.
const (
	TriggerUserInput = "user_input"
	TriggerAuto      = "auto"
	TriggerCommand   = "command"
)
