package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/genai"
	"github.com/digkill/genstudio/internal/metrics"
	"github.com/digkill/genstudio/internal/models"
)

const (
	maxImagesPerRequest = 4
	promptPreviewLen    = 50
)

var allowedAspectRatios = map[string]bool{"1:1": true, "16:9": true, "9:16": true, "4:3": true, "3:4": true}

// Generator is the generation backend.
type Generator interface {
	GenerateImages(ctx context.Context, req genai.ImageRequest) ([]genai.Image, error)
	EnhanceImage(ctx context.Context, sourceURL, prompt string) (*genai.Image, error)
	EditImage(ctx context.Context, sourceURL, prompt string) (*genai.Image, error)
	StartVideo(ctx context.Context, prompt string) (string, error)
	CheckVideo(ctx context.Context, operationID string) (genai.Operation, error)
	Chat(ctx context.Context, req genai.ChatRequest) (*genai.ChatReply, error)
}

// BlobStore keeps generated assets at stable public URLs.
type BlobStore interface {
	Upload(ctx context.Context, folder string, data []byte, contentType string) (string, error)
	CopyFromURL(ctx context.Context, folder, sourceURL string) (string, error)
}

// Costs are the credit prices of each metered action. Image is charged per image.
type Costs struct {
	Image   int64
	Enhance int64
	Edit    int64
	Video   int64
	Chat    int64
}

type GenerationService struct {
	ledger   *LedgerService
	users    UserStore
	images   ImageStore
	videos   VideoStore
	chats    ChatStore
	settings *SettingsService
	activity *ActivityService
	gen      Generator
	blobs    BlobStore
	costs    Costs
	clock    clock.Clock
	log      *slog.Logger
}

type GenerationDeps struct {
	Ledger   *LedgerService
	Users    UserStore
	Images   ImageStore
	Videos   VideoStore
	Chats    ChatStore
	Settings *SettingsService
	Activity *ActivityService
	Gen      Generator
	Blobs    BlobStore
	Costs    Costs
	Clock    clock.Clock
	Log      *slog.Logger
}

func NewGenerationService(deps GenerationDeps) *GenerationService {
	return &GenerationService{
		ledger:   deps.Ledger,
		users:    deps.Users,
		images:   deps.Images,
		videos:   deps.Videos,
		chats:    deps.Chats,
		settings: deps.Settings,
		activity: deps.Activity,
		gen:      deps.Gen,
		blobs:    deps.Blobs,
		costs:    deps.Costs,
		clock:    deps.Clock,
		log:      deps.Log,
	}
}

// charge runs call with cost reserved from the user's balance. The credits are
// deducted before call runs and refunded if it fails; the refund ignores
// cancellation of ctx so an abandoned request still gets its credits back.
func (s *GenerationService) charge(ctx context.Context, userID, action string, cost int64, call func(ctx context.Context) error) error {
	if _, err := s.ledger.Deduct(ctx, userID, cost); err != nil {
		return err
	}

	start := time.Now()
	err := call(ctx)
	metrics.RecordGeneration(action, time.Since(start), err == nil)
	if err == nil {
		return nil
	}

	s.log.Warn("generation failed, refunding", "action", action, "user_id", userID, "cost", cost, "err", err)
	genErr := &GenerationError{Action: action, Err: err}
	if _, refundErr := s.ledger.Refund(context.WithoutCancel(ctx), userID, cost); refundErr != nil {
		s.log.Error("refund failed", "action", action, "user_id", userID, "cost", cost, "err", refundErr)
		return errors.Join(genErr, fmt.Errorf("refund %d credits: %w", cost, refundErr))
	}
	return genErr
}

// precheck validates the caller and the feature flag selected by enabled.
func (s *GenerationService) precheck(ctx context.Context, userID string, enabled func(models.FeatureFlags) bool) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	flags, err := s.settings.FeatureFlags(ctx)
	if err != nil {
		return err
	}
	if !enabled(flags) {
		return ErrFeatureDisabled
	}
	return nil
}

func imageStudio(f models.FeatureFlags) bool { return f.ImageStudioEnabled }
func videoStudio(f models.FeatureFlags) bool { return f.VideoGeneratorEnabled }
func chatBot(f models.FeatureFlags) bool     { return f.ChatBotEnabled }

type ImageRequest struct {
	Prompt      string
	Count       int
	AspectRatio string
}

// GenerateImages charges Costs.Image for each requested image.
func (s *GenerationService) GenerateImages(ctx context.Context, userID string, req ImageRequest) (*models.ImageHistoryItem, error) {
	if err := s.precheck(ctx, userID, imageStudio); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, invalidInput("prompt is required")
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 1 || req.Count > maxImagesPerRequest {
		return nil, invalidInput("count must be between 1 and %d", maxImagesPerRequest)
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	if !allowedAspectRatios[req.AspectRatio] {
		return nil, invalidInput("unsupported aspect ratio %q", req.AspectRatio)
	}

	cost := s.costs.Image * int64(req.Count)
	var item *models.ImageHistoryItem
	err := s.charge(ctx, userID, string(models.ActivityGenerate), cost, func(ctx context.Context) error {
		images, err := s.gen.GenerateImages(ctx, genai.ImageRequest{Prompt: prompt, Count: req.Count, AspectRatio: req.AspectRatio})
		if err != nil {
			return err
		}
		urls := make([]string, 0, len(images))
		for _, img := range images {
			stored, err := s.blobs.CopyFromURL(ctx, "images", img.URL)
			if err != nil {
				return fmt.Errorf("store image: %w", err)
			}
			urls = append(urls, stored)
		}
		item, err = s.recordImage(ctx, userID, models.ImageKindGenerate, prompt, req.AspectRatio, urls, cost)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, userID, models.ActivityGenerate,
		fmt.Sprintf("Generated %d image(s) with prompt: %q", req.Count, promptPreview(prompt)))
	return item, nil
}

// Enhance re-renders an existing image at higher quality.
func (s *GenerationService) Enhance(ctx context.Context, userID, sourceURL, prompt string) (*models.ImageHistoryItem, error) {
	if err := s.precheck(ctx, userID, imageStudio); err != nil {
		return nil, err
	}
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, invalidInput("image url is required")
	}
	prompt = strings.TrimSpace(prompt)

	var item *models.ImageHistoryItem
	err := s.charge(ctx, userID, string(models.ActivityEnhance), s.costs.Enhance, func(ctx context.Context) error {
		img, err := s.gen.EnhanceImage(ctx, sourceURL, prompt)
		if err != nil {
			return err
		}
		stored, err := s.blobs.CopyFromURL(ctx, "images", img.URL)
		if err != nil {
			return fmt.Errorf("store image: %w", err)
		}
		item, err = s.recordImage(ctx, userID, models.ImageKindEnhance, prompt, "1:1", []string{stored}, s.costs.Enhance)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, userID, models.ActivityEnhance, "Enhanced an image.")
	return item, nil
}

// Edit applies prompt to an uploaded image. The upload is stored first so the
// backend can fetch it by URL.
func (s *GenerationService) Edit(ctx context.Context, userID string, image []byte, contentType, prompt string) (*models.ImageHistoryItem, error) {
	if err := s.precheck(ctx, userID, imageStudio); err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, invalidInput("prompt is required")
	}
	if len(image) == 0 {
		return nil, invalidInput("image is required")
	}

	var item *models.ImageHistoryItem
	err := s.charge(ctx, userID, string(models.ActivityEdit), s.costs.Edit, func(ctx context.Context) error {
		sourceURL, err := s.blobs.Upload(ctx, "uploads", image, contentType)
		if err != nil {
			return fmt.Errorf("store upload: %w", err)
		}
		img, err := s.gen.EditImage(ctx, sourceURL, prompt)
		if err != nil {
			return err
		}
		stored, err := s.blobs.CopyFromURL(ctx, "images", img.URL)
		if err != nil {
			return fmt.Errorf("store image: %w", err)
		}
		item, err = s.recordImage(ctx, userID, models.ImageKindEdit, prompt, "1:1", []string{stored}, s.costs.Edit)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, userID, models.ActivityEdit,
		fmt.Sprintf("Edited an uploaded image with prompt: %q", promptPreview(prompt)))
	return item, nil
}

func (s *GenerationService) recordImage(ctx context.Context, userID string, kind models.ImageKind, prompt, aspect string, urls []string, cost int64) (*models.ImageHistoryItem, error) {
	item := &models.ImageHistoryItem{
		ID:             uuid.NewString(),
		UserID:         userID,
		Kind:           kind,
		Prompt:         prompt,
		AspectRatio:    aspect,
		ImageURLs:      urls,
		CreditsCharged: cost,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.images.AddImage(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// promptPreview shortens a prompt for the activity log.
func promptPreview(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > promptPreviewLen {
		runes = runes[:promptPreviewLen]
	}
	return string(runes) + "..."
}
