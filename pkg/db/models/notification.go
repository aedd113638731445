package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a single user.
type Notification struct {
	ID                uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID           uuid.UUID                  `gorm:"type:uuid;not null"`
	UserID            uuid.UUID                  `gorm:"type:uuid;not null"`
	OrganizationID    *uuid.UUID                 `gorm:"type:uuid"`
	Type              enums.NotificationType     `gorm:"type:notification_type;not null"`
	Priority          enums.NotificationPriority `gorm:"type:notification_priority;not null"`
	Title             string                     `gorm:"type:text;not null"`
	Message           string                     `gorm:"type:text;not null"`
	RelatedEntityType *string                    `gorm:"type:text"`
	RelatedEntityID   *uuid.UUID                 `gorm:"type:uuid"`
	ReadAt            *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt         time.Time                  `gorm:"type:timestamptz;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error { return assignID(&n.ID) }
