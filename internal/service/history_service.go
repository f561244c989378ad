package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

func (s *GenerationService) ImageHistory(ctx context.Context, userID string) ([]models.ImageHistoryItem, error) {
	return s.images.ListImages(ctx, userID)
}

func (s *GenerationService) DeleteImage(ctx context.Context, userID, id string) error {
	return historyErr(s.images.DeleteImage(ctx, userID, id))
}

func (s *GenerationService) VideoHistory(ctx context.Context, userID string) ([]models.VideoHistoryItem, error) {
	return s.videos.ListByUser(ctx, userID)
}

func (s *GenerationService) DeleteVideo(ctx context.Context, userID, id string) error {
	return historyErr(s.videos.Delete(ctx, userID, id))
}

// ChatHistory returns the user's messages grouped by session, each session
// oldest message first.
func (s *GenerationService) ChatHistory(ctx context.Context, userID string) (map[string][]models.ChatMessage, error) {
	msgs, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions := make(map[string][]models.ChatMessage)
	for _, m := range msgs {
		sessions[m.SessionID] = append(sessions[m.SessionID], m)
	}
	return sessions, nil
}

func (s *GenerationService) DeleteChatSession(ctx context.Context, userID, sessionID string) error {
	return historyErr(s.chats.DeleteSession(ctx, userID, sessionID))
}

// ClearChat removes every chat message of a non-admin user.
func (s *GenerationService) ClearChat(ctx context.Context, adminID, targetUserID string) error {
	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if target == nil {
		return ErrUserNotFound
	}
	if target.IsAdmin {
		return ErrTargetIsAdmin
	}
	removed, err := s.chats.Clear(ctx, target.ID)
	if err != nil {
		return err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin cleared chat history for %s.", target.Email))
	s.log.Info("chat history cleared", "admin_id", adminID, "user_id", target.ID, "messages", removed)
	return nil
}

func historyErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrHistoryNotFound
	case errors.Is(err, repository.ErrStillPending):
		return ErrVideoPending
	}
	return err
}
