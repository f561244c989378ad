package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/genai"
	"github.com/digkill/genstudio/internal/metrics"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

var errAlreadyResolved = errors.New("video already resolved")

// StartVideo charges for a video and records the backend operation as pending.
// The result is collected later by RefreshVideo.
func (s *GenerationService) StartVideo(ctx context.Context, userID, prompt string) (*models.VideoHistoryItem, error) {
	if err := s.precheck(ctx, userID, videoStudio); err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, invalidInput("prompt is required")
	}

	var item *models.VideoHistoryItem
	err := s.charge(ctx, userID, string(models.ActivityVideoGenerate), s.costs.Video, func(ctx context.Context) error {
		opID, err := s.gen.StartVideo(ctx, prompt)
		if err != nil {
			return err
		}
		item = &models.VideoHistoryItem{
			ID:             uuid.NewString(),
			UserID:         userID,
			Prompt:         prompt,
			OperationID:    opID,
			Status:         models.VideoPending,
			CreditsCharged: s.costs.Video,
			CreatedAt:      s.clock.Now(),
		}
		if err := s.videos.Add(ctx, item); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("operation %s is already tracked: %w", opID, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, userID, models.ActivityVideoGenerate,
		fmt.Sprintf("Started video generation for prompt: %q", promptPreview(prompt)))
	return item, nil
}

// PollVideo refreshes one of the user's videos. Another user's operation reads
// as not found.
func (s *GenerationService) PollVideo(ctx context.Context, userID, operationID string) (*models.VideoHistoryItem, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	item, err := s.videos.GetByOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, ErrHistoryNotFound
	}
	if item.Status != models.VideoPending {
		return item, nil
	}
	return s.refresh(ctx, item)
}

// RefreshVideo asks the backend about a pending operation and applies the
// answer. It is safe to call repeatedly.
func (s *GenerationService) RefreshVideo(ctx context.Context, operationID string) (*models.VideoHistoryItem, error) {
	item, err := s.videos.GetByOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrHistoryNotFound
	}
	if item.Status != models.VideoPending {
		return item, nil
	}
	return s.refresh(ctx, item)
}

func (s *GenerationService) refresh(ctx context.Context, item *models.VideoHistoryItem) (*models.VideoHistoryItem, error) {
	op, err := s.gen.CheckVideo(ctx, item.OperationID)
	if err != nil {
		metrics.RecordVideoPoll("error")
		return nil, fmt.Errorf("check video %s: %w", item.OperationID, err)
	}
	return s.CompleteVideo(ctx, op)
}

// PendingVideos lists unresolved operations, oldest first.
func (s *GenerationService) PendingVideos(ctx context.Context, limit int) ([]models.VideoHistoryItem, error) {
	return s.videos.ListPending(ctx, limit)
}

// CompleteVideo applies a backend status to the tracked operation. A finished
// video is copied to blob storage; a failed one is marked failed and its
// credits are returned to the owner in the same transaction. Items that are no
// longer pending are returned unchanged.
func (s *GenerationService) CompleteVideo(ctx context.Context, op genai.Operation) (*models.VideoHistoryItem, error) {
	current, err := s.videos.GetByOperation(ctx, op.OperationID())
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrHistoryNotFound
	}
	if current.Status != models.VideoPending {
		return current, nil
	}

	var apply func(item *models.VideoHistoryItem, user *models.User) error
	switch o := op.(type) {
	case genai.OperationPending:
		metrics.RecordVideoPoll("pending")
		return current, nil

	case genai.OperationDone:
		videoURL, err := s.blobs.CopyFromURL(ctx, "videos", o.ResultURL)
		if err != nil {
			s.log.Warn("failed to store video, keeping backend url", "operation_id", o.ID, "err", err)
			videoURL = o.ResultURL
		}
		apply = func(item *models.VideoHistoryItem, _ *models.User) error {
			if item.Status != models.VideoPending {
				return errAlreadyResolved
			}
			now := s.clock.Now()
			item.Status = models.VideoCompleted
			item.VideoURL = videoURL
			item.ResolvedAt = &now
			return nil
		}

	case genai.OperationFailed:
		apply = func(item *models.VideoHistoryItem, user *models.User) error {
			if item.Status != models.VideoPending {
				return errAlreadyResolved
			}
			now := s.clock.Now()
			item.Status = models.VideoFailed
			item.FailureReason = o.Reason
			item.ResolvedAt = &now
			if user != nil {
				user.Credits += item.CreditsCharged
			}
			return nil
		}

	default:
		return nil, fmt.Errorf("unknown operation type %T", op)
	}

	item, err := s.videos.Resolve(ctx, op.OperationID(), apply)
	switch {
	case errors.Is(err, errAlreadyResolved):
		return s.videos.GetByOperation(ctx, op.OperationID())
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrHistoryNotFound
	case err != nil:
		return nil, fmt.Errorf("resolve video %s: %w", op.OperationID(), err)
	}

	metrics.RecordVideoPoll(string(item.Status))
	if item.Status == models.VideoFailed {
		metrics.RecordCredits("refunded", item.CreditsCharged)
		s.log.Info("video failed, credits refunded", "operation_id", item.OperationID, "user_id", item.UserID, "credits", item.CreditsCharged)
	}
	return item, nil
}
