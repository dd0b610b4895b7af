package models

// All lists every model the API server migrates on startup.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Anime{},
		&Comment{},
		&Badge{},
		&Task{},
		&Notification{},
		&NotificationSetting{},
	}
}
