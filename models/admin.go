package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin is the authorization record looked up by identity-provider uid.
type Admin struct {
	UID         string    `json:"uid" db:"uid" gorm:"type:text;primaryKey"`
	Email       string    `json:"email" db:"email" gorm:"type:text;not null"`
	DisplayName *string   `json:"displayName,omitempty" db:"display_name" gorm:"type:text"`
	IsAdmin     bool      `json:"isAdmin" db:"is_admin" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Credential is an email/password account of the local identity provider.
type Credential struct {
	UID          uuid.UUID `json:"uid" db:"uid" gorm:"type:uuid;primaryKey;not null"`
	Email        string    `json:"email" db:"email" gorm:"type:text;not null;uniqueIndex:idx_credential_email"`
	PasswordHash string    `json:"-" db:"password_hash" gorm:"type:text;not null"`
	DisplayName  *string   `json:"displayName,omitempty" db:"display_name" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.UID == uuid.Nil {
		c.UID = uuid.New()
	}
	return nil
}
