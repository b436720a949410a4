package models

import (
	"time"

	"gorm.io/gorm"
)

// Partnership status constants
const (
	PartnershipPending  = "pending"
	PartnershipAccepted = "accepted"
	PartnershipDeclined = "declined"
)

/** --------------------ENTITIES-------------------- */
// Partnership links two users. A user participates in at most one accepted
// partnership at a time.
type Partnership struct {
	gorm.Model
	User1ID    uint       `gorm:"not null;index" json:"user1Id"`
	User2ID    uint       `gorm:"not null;index" json:"user2Id"`
	Status     string     `gorm:"not null;type:varchar(10);default:'pending';check:status IN ('pending', 'accepted', 'declined')" json:"status"`
	InvitedBy  uint       `gorm:"not null" json:"invitedBy"` // User ID who sent the invitation
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`

	User1 User `gorm:"foreignKey:User1ID" json:"-"`
	User2 User `gorm:"foreignKey:User2ID" json:"-"`
}

// OtherUser returns the partner of userID within this partnership.
func (p *Partnership) OtherUser(userID uint) uint {
	if p.User1ID == userID {
		return p.User2ID
	}
	return p.User1ID
}

/** -------------------- DTOs -------------------- */
type PartnerInviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PartnerResponse struct {
	ID              uint       `json:"id"`
	DisplayName     string     `json:"displayName"`
	ColorPreference string     `json:"colorPreference"`
	Timezone        string     `json:"timezone"`
	InviteStatus    string     `json:"inviteStatus"`
	ConnectedAt     *time.Time `json:"connectedAt,omitempty"`
}
