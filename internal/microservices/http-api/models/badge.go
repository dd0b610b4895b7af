package models

type Badge struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
}

func (Badge) TableName() string {
	return "badges"
}

// Task is a gamification goal; completing it awards Points.
type Task struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	Points      int    `json:"points" gorm:"default:0"`
}

func (Task) TableName() string {
	return "tasks"
}
