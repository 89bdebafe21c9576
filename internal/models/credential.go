package models

import (
	"gorm.io/gorm"
)

// SessionCredential stores the opaque credential material of one bot session
type SessionCredential struct {
	gorm.Model
	SessionKey string `json:"session_key" gorm:"uniqueIndex;not null"`
	Data       []byte `json:"-" gorm:"type:bytea"`
}

// TableName keeps the table name stable across renames of the struct
func (SessionCredential) TableName() string {
	return "session_credentials"
}
