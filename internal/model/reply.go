package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reply answers either a Comment (ParentCommentID set, a "parent reply") or
// another Reply (ParentReplyID set, a "nested reply"). Exactly one parent is set.
type Reply struct {
	ID              string    `gorm:"type:uuid;primary_key" json:"id"`
	ReplyContent    string    `gorm:"type:varchar(255);not null" json:"replyContent"`
	OwnerID         string    `gorm:"type:uuid;not null;index" json:"ownerId"`
	ParentCommentID *string   `gorm:"type:uuid;index" json:"parentCommentId,omitempty"`
	ParentReplyID   *string   `gorm:"type:uuid;index" json:"parentReplyId,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relationships
	Owner *User `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Reply) TableName() string {
	return "replies"
}

// IsNested reports whether the reply hangs under another reply.
func (r *Reply) IsNested() bool {
	return r.ParentReplyID != nil
}
