package models

import (
	"time"
)

// Persona visibility values
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
)

// Persona represents a creator-owned content profile. The table is owned by
// the persona management subsystem; the discovery engine only reads it.
type Persona struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID    int64     `gorm:"not null;index;column:owner_id"`
	Name       string    `gorm:"type:varchar(255);not null;column:name"`
	Category   string    `gorm:"type:varchar(64);index;column:category"`
	Visibility string    `gorm:"type:varchar(16);not null;default:public;column:visibility"`
	IsPromoted bool      `gorm:"not null;default:false;column:is_promoted"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Persona
func (Persona) TableName() string {
	return "personas"
}

// IsPublic reports whether the persona is publicly discoverable
func (p *Persona) IsPublic() bool {
	return p.Visibility == VisibilityPublic
}
