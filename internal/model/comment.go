package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a top-level comment on a video. ReplyIDs keeps the ids of its
// direct replies in the order they were added.
type Comment struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	VideoID   string    `gorm:"type:uuid;not null;index:idx_comments_video_created,priority:1" json:"videoId"`
	OwnerID   string    `gorm:"type:uuid;not null;index" json:"ownerId"`
	Content   string    `gorm:"type:varchar(255);not null" json:"content"`
	ReplyIDs  []string  `gorm:"type:text;serializer:json" json:"replyIds"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_comments_video_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relationships
	Owner *User `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ReplyIDs == nil {
		c.ReplyIDs = []string{}
	}
	return nil
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}
