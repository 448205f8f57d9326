// Package llm holds the provider-neutral types shared by the glassbox
// services: chat messages, requests and responses, streaming chunks, and the
// Client contract every upstream provider implements.
package llm

import "strings"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and text.
func NewTextMessage(role, text string) Message {
	return Message{Role: NormalizeRole(role), Content: text}
}

// NormalizeRole maps caller-supplied role names onto the canonical set.
// Browser clients label model turns "model"; providers expect "assistant".
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "model", RoleAssistant:
		return RoleAssistant
	case RoleSystem:
		return RoleSystem
	default:
		return RoleUser
	}
}
