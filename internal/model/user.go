package model

import "time"

// User is owned by the account service. The comment engine only reads the
// identity columns for enrichment and never writes users.
type User struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	UserName  string    `gorm:"type:varchar(50);uniqueIndex" json:"userName"`
	FullName  string    `gorm:"type:varchar(100)" json:"fullName"`
	Email     string    `gorm:"type:varchar(255)" json:"-"`
	Avatar    string    `gorm:"type:text" json:"avatar"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// IdentityColumns are the columns selected for owner enrichment.
var IdentityColumns = []string{"id", "full_name", "user_name", "avatar"}
