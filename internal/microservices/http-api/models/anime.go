package models

import "time"

type Anime struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Slug        *string   `json:"slug,omitempty" gorm:"uniqueIndex;size:200"`
	Title       string    `json:"title" gorm:"not null"`
	Status      *string   `json:"status,omitempty"`
	Description *string   `json:"description,omitempty"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	CreatedByID *string   `json:"created_by_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	CreatedBy *User `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL;"`
}

func (Anime) TableName() string {
	return "anime"
}
