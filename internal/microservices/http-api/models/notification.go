package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationSystem  NotificationType = "SYSTEM"
	NotificationUser    NotificationType = "USER"
	NotificationAnime   NotificationType = "ANIME"
	NotificationComment NotificationType = "COMMENT"
	NotificationForum   NotificationType = "FORUM"
	NotificationTask    NotificationType = "TASK"
	NotificationBadge   NotificationType = "BADGE"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationSystem:  {},
	NotificationUser:    {},
	NotificationAnime:   {},
	NotificationComment: {},
	NotificationForum:   {},
	NotificationTask:    {},
	NotificationBadge:   {},
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

type Notification struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	UserID    string           `gorm:"type:uuid;not null;index:idx_notifications_user_read" json:"user_id"`
	SenderID  *string          `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	AnimeID   *int64           `gorm:"index" json:"anime_id,omitempty"`
	Link      *string          `json:"link,omitempty"`
	Data      datatypes.JSON   `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool             `gorm:"default:false;not null;index:idx_notifications_user_read" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`

	// Associations
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Sender *User  `gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL;" json:"sender,omitempty"`
	Anime  *Anime `gorm:"foreignKey:AnimeID;constraint:OnDelete:SET NULL;" json:"anime,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSetting is a per-user toggle for one notification type.
// At most one row exists per (user_id, type).
type NotificationSetting struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string           `gorm:"type:uuid;not null;uniqueIndex:idx_notification_settings_user_type" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(16);not null;uniqueIndex:idx_notification_settings_user_type" json:"type"`
	Enabled   bool             `gorm:"not null" json:"enabled"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (NotificationSetting) TableName() string {
	return "notification_settings"
}
