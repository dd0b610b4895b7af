package service

import (
	"context"
	"errors"
	"log/slog"

	"animehub/internal/microservices/http-api/dto"
	"animehub/internal/microservices/http-api/models"
	"animehub/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

var ErrAnimeNotFound = errors.New("anime not found")

// CommentNotifier is the part of NotificationService the comment flow needs.
type CommentNotifier interface {
	SendCommentNotification(ctx context.Context, commentID, animeID int64, commenterID string) (*models.Notification, error)
}

type CommentService interface {
	CreateComment(ctx context.Context, userID string, animeID int64, content string) (*dto.CommentResponse, error)
	DeleteComment(ctx context.Context, commentID int64, userID string) error
	GetAnimeComments(ctx context.Context, animeID int64, page, pageSize int) (*dto.PaginatedCommentResponse, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	animeRepo   AnimeLookup
	notifier    CommentNotifier
	logger      *slog.Logger
}

func NewCommentService(commentRepo repository.CommentRepository, animeRepo AnimeLookup, notifier CommentNotifier, logger *slog.Logger) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		animeRepo:   animeRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateComment stores the comment and notifies the anime's owner. A failed
// notification is logged; the comment itself is already committed.
func (s *commentService) CreateComment(ctx context.Context, userID string, animeID int64, content string) (*dto.CommentResponse, error) {
	if _, err := s.animeRepo.GetByID(ctx, animeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnimeNotFound
		}
		return nil, err
	}

	comment := &models.Comment{
		UserID:  userID,
		AnimeID: animeID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	// reload with user data
	comment, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.notifier.SendCommentNotification(ctx, comment.ID, animeID, userID); err != nil {
		s.logger.Warn("comment_notification_failed",
			"comment_id", comment.ID,
			"anime_id", animeID,
			"error", err,
		)
	}

	return dto.FromModelToCommentResponse(comment), nil
}

func (s *commentService) DeleteComment(ctx context.Context, commentID int64, userID string) error {
	return s.commentRepo.Delete(ctx, commentID, userID)
}

// GetAnimeComments retrieves all comments for an anime with pagination
func (s *commentService) GetAnimeComments(ctx context.Context, animeID int64, page, pageSize int) (*dto.PaginatedCommentResponse, error) {
	if _, err := s.animeRepo.GetByID(ctx, animeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnimeNotFound
		}
		return nil, err
	}

	comments, total, err := s.commentRepo.GetByAnime(ctx, animeID, page, pageSize)
	if err != nil {
		return nil, err
	}

	commentResponses := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		commentResponses = append(commentResponses, *dto.FromModelToCommentResponse(&comments[i]))
	}

	return dto.NewPaginatedCommentResponse(commentResponses, int(total), page, pageSize), nil
}
