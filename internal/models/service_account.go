package models

import "gorm.io/gorm"

// ServiceAccount is a credential record for a caller service (gateway,
// back-office tooling) allowed to use the HTTP surface.
type ServiceAccount struct {
	ClientID   string `json:"client_id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string `json:"name" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	SecretHash string `json:"-" gorm:"type:varchar(255)"`
	gorm.Model `json:"-"` // CreatedAt, UpdatedAt, DeletedAt
}
