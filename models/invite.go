// models/invite.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteRejected  InviteStatus = "rejected"
	InviteCancelled InviteStatus = "cancelled"
)

// CoopInvite coordinates a two-party achievement. At most one pending invite
// may exist per (FromUsername, AchievementID) pair; terminal records are
// immutable and excluded from pending queries.
type CoopInvite struct {
	ID            string       `gorm:"primaryKey;size:36" json:"id"`
	AchievementID string       `gorm:"not null;index" json:"achievement_id"`
	FromUsername  string       `gorm:"not null;index:idx_invite_sender" json:"from_username"`
	ToUsername    string       `gorm:"not null;index" json:"to_username"`
	Status        InviteStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`

	// Proof attached by the sender at creation time, carried forward to the
	// accepting user's record on acceptance.
	Proof datatypes.JSONType[*Proof] `json:"proof,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (CoopInvite) TableName() string {
	return "coop_invites"
}

// Terminal reports whether the invite has been resolved.
func (i *CoopInvite) Terminal() bool {
	return i.Status != InvitePending
}
