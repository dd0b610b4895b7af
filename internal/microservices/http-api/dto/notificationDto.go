package dto

import (
	"time"

	"animehub/internal/microservices/http-api/models"

	"gorm.io/datatypes"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// SenderResponse is the public identity of whoever triggered a notification.
type SenderResponse struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

type AnimeSummary struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Slug     *string `json:"slug,omitempty"`
	CoverURL *string `json:"coverUrl,omitempty"`
}

type NotificationResponse struct {
	ID        int64                   `json:"id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	UserID    string                  `json:"userId"`
	SenderID  *string                 `json:"senderId,omitempty"`
	AnimeID   *int64                  `json:"animeId,omitempty"`
	Link      *string                 `json:"link,omitempty"`
	Data      datatypes.JSON          `json:"data,omitempty"`
	IsRead    bool                    `json:"isRead"`
	CreatedAt time.Time               `json:"createdAt"`
	Sender    *SenderResponse         `json:"sender,omitempty"`
	Anime     *AnimeSummary           `json:"anime,omitempty"`
}

func FromModelToNotificationResponse(n *models.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		UserID:    n.UserID,
		SenderID:  n.SenderID,
		AnimeID:   n.AnimeID,
		Link:      n.Link,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Sender != nil {
		resp.Sender = &SenderResponse{
			ID:           n.Sender.ID,
			Username:     n.Sender.Username,
			ProfileImage: n.Sender.ProfileImage,
		}
	}
	if n.Anime != nil {
		resp.Anime = &AnimeSummary{
			ID:       n.Anime.ID,
			Title:    n.Anime.Title,
			Slug:     n.Anime.Slug,
			CoverURL: n.Anime.CoverURL,
		}
	}
	return resp
}

func FromModelsToNotificationResponses(list []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(list))
	for i := range list {
		out = append(out, FromModelToNotificationResponse(&list[i]))
	}
	return out
}

// NotificationListResponse wraps a page of notifications.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

type NotificationSettingDTO struct {
	Type    models.NotificationType `json:"type" binding:"required"`
	Enabled *bool                   `json:"enabled" binding:"required"`
}

// UpdateNotificationSettingsRequest is the body of PUT /settings
type UpdateNotificationSettingsRequest struct {
	Settings []NotificationSettingDTO `json:"settings" binding:"required,dive"`
}

type NotificationSettingResponse struct {
	Type    models.NotificationType `json:"type"`
	Enabled bool                    `json:"enabled"`
}

func FromModelsToSettingResponses(list []models.NotificationSetting) []NotificationSettingResponse {
	out := make([]NotificationSettingResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NotificationSettingResponse{Type: s.Type, Enabled: s.Enabled})
	}
	return out
}

type NotificationSettingsResponse struct {
	Settings []NotificationSettingResponse `json:"settings"`
}

// SystemNotificationRequest is the admin broadcast body.
type SystemNotificationRequest struct {
	Title   string         `json:"title" binding:"required,max=200"`
	Message string         `json:"message" binding:"required,max=2000"`
	Data    map[string]any `json:"data"`
}

// SendNotificationRequest is one entry of an admin bulk send. Entries are
// validated by the service so one bad entry only nulls its own slot.
type SendNotificationRequest struct {
	Type     models.NotificationType `json:"type"`
	Title    string                  `json:"title"`
	Message  string                  `json:"message"`
	UserID   string                  `json:"userId"`
	SenderID *string                 `json:"senderId"`
	AnimeID  *int64                  `json:"animeId"`
	Link     *string                 `json:"link"`
	Data     map[string]any          `json:"data"`
}

type BulkNotificationRequest struct {
	Notifications []SendNotificationRequest `json:"notifications" binding:"required,min=1,max=1000"`
}

// FanoutResponse reports a bulk or system send; failed slots are null.
type FanoutResponse struct {
	Requested     int                     `json:"requested"`
	Delivered     int                     `json:"delivered"`
	Notifications []*NotificationResponse `json:"notifications"`
}

func NewFanoutResponse(results []*models.Notification) FanoutResponse {
	resp := FanoutResponse{
		Requested:     len(results),
		Notifications: make([]*NotificationResponse, len(results)),
	}
	for i, n := range results {
		if n == nil {
			continue
		}
		r := FromModelToNotificationResponse(n)
		resp.Notifications[i] = &r
		resp.Delivered++
	}
	return resp
}

// AwardRequest names the user receiving a badge or task completion.
type AwardRequest struct {
	UserID string `json:"userId" binding:"required"`
}
