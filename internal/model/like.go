package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Like is polymorphic (target_kind + target_id), so there is no foreign key on target_id.
// Likes on replies use TargetKindComment, the same as likes on comments.
type Like struct {
	ID         string    `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_likes_owner_target,priority:1" json:"likedBy"`
	TargetKind string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_likes_owner_target,priority:2;index:idx_likes_target,priority:1" json:"targetKind"`
	TargetID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_likes_owner_target,priority:3;index:idx_likes_target,priority:2" json:"targetId"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// BeforeCreate hook to generate UUID
func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Like) TableName() string {
	return "likes"
}

// Constants for target kinds
const (
	TargetKindVideo   = "video"
	TargetKindComment = "comment"
	TargetKindTweet   = "tweet"
)

// IsValidTargetKind validates a like target kind
func IsValidTargetKind(kind string) bool {
	switch kind {
	case TargetKindVideo, TargetKindComment, TargetKindTweet:
		return true
	}
	return false
}
