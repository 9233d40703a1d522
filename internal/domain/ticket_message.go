package domain

import (
	"strings"
	"time"
)

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderTypeUser  SenderType = "user"
	SenderTypeStaff SenderType = "staff"
)

// Message captures one entry in a ticket thread. Messages are immutable.
type Message struct {
	ID         string
	ThreadID   string
	Content    string
	SenderType SenderType
	SenderName string
	CreatedAt  time.Time
}

// ParseSenderType accepts both sender types and the role names clients send
// in place of them (student means user, any staff role means staff).
func ParseSenderType(raw string) (SenderType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SenderTypeUser), string(RoleStudent):
		return SenderTypeUser, true
	case string(SenderTypeStaff), string(RoleManager), string(RoleDepartment), string(RoleLeadership):
		return SenderTypeStaff, true
	}
	return "", false
}
