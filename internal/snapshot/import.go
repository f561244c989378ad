package snapshot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/service"
)

// ErrNotEmpty is returned when the target database already holds accounts.
var ErrNotEmpty = errors.New("import requires an empty database")

// legacyHashPrefix marks the reversible password hashes of the legacy export.
const legacyHashPrefix = "hashed_"

const defaultActivityKeep = 500

type Importer struct {
	Users    service.UserStore
	Plans    service.PlanStore
	Promos   service.PromoStore
	Payments service.PaymentStore
	Images   service.ImageStore
	Videos   service.VideoStore
	Chats    service.ChatStore
	Activity service.ActivityStore
	Settings *service.SettingsService
	Hasher   service.PasswordHasher
	// Blobs receives embedded base64 images. When nil, image history is skipped.
	Blobs        service.BlobStore
	ActivityKeep int
	Clock        clock.Clock
	Log          *slog.Logger
}

type Report struct {
	Users        int
	Images       int
	Videos       int
	ChatMessages int
	Payments     int
	Plans        int
	Promos       int
	Activity     int
	Skipped      int
}

// Import writes doc into the stores. Lists in the export are newest first, so
// they are replayed in reverse.
//
// Rows are written store by store without an enclosing transaction. A failed
// run leaves what it wrote behind, and a retry fails with ErrNotEmpty once any
// user was written; the database has to be recreated first.
func (im *Importer) Import(ctx context.Context, doc *Document) (Report, error) {
	var rep Report
	if doc == nil {
		return rep, nil
	}
	existing, err := im.Users.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		return rep, ErrNotEmpty
	}

	if err := im.Settings.Restore(ctx, rewardSettings(doc.RewardSettings), featureFlags(doc.FeatureFlags), paymentSettings(doc.PaymentSettings)); err != nil {
		return rep, fmt.Errorf("restore settings: %w", err)
	}

	for _, p := range doc.CreditPlans {
		now := im.Clock.Now()
		plan := &models.Plan{ID: p.ID, Credits: p.Credits, Price: roundPrice(p.Price), Currency: p.Currency, CreatedAt: now, UpdatedAt: now}
		if err := im.Plans.Create(ctx, plan); err != nil {
			return rep, fmt.Errorf("import plan %s: %w", p.ID, err)
		}
		rep.Plans++
	}
	for _, p := range doc.PromoCodes {
		promo := &models.PromoCode{
			ID:                 p.ID,
			Code:               strings.ToUpper(strings.TrimSpace(p.Code)),
			DiscountPercentage: p.DiscountPercentage,
			IsActive:           p.IsActive,
			CreatedAt:          im.Clock.Now(),
		}
		if err := im.Promos.Create(ctx, promo); err != nil {
			return rep, fmt.Errorf("import promo %s: %w", p.Code, err)
		}
		rep.Promos++
	}

	owners := make(map[string]bool, len(doc.Users))
	for _, u := range doc.Users {
		if err := im.importUser(ctx, u, &rep); err != nil {
			return rep, err
		}
		owners[u.ID] = true
	}

	for i := len(doc.PaymentRequests) - 1; i >= 0; i-- {
		p := doc.PaymentRequests[i]
		req := &models.PaymentRequest{
			ID:                p.ID,
			UserID:            p.UserID,
			UserEmail:         strings.ToLower(p.UserEmail),
			PlanCredits:       p.PlanCredits,
			PlanPrice:         roundPrice(p.PlanPrice),
			PromoCode:         p.PromoCode,
			FinalPrice:        roundPrice(p.FinalPrice),
			PaymentMethod:     models.PaymentMethod(p.PaymentMethod),
			UserAccountNumber: p.UserAccountNumber,
			TransactionID:     p.TransactionID,
			Status:            models.PaymentStatus(p.Status),
			RejectionReason:   p.RejectionReason,
			CreatedAt:         im.parseTime(p.Timestamp),
		}
		if !owners[p.UserID] || !req.PaymentMethod.Valid() || !validStatus(req.Status) {
			im.Log.Warn("skipping payment request", "id", p.ID, "user_id", p.UserID, "method", p.PaymentMethod, "status", p.Status)
			rep.Skipped++
			continue
		}
		if err := im.Payments.Create(ctx, req); err != nil {
			return rep, fmt.Errorf("import payment %s: %w", p.ID, err)
		}
		rep.Payments++
	}

	keep := im.ActivityKeep
	if keep <= 0 {
		keep = defaultActivityKeep
	}
	for i := len(doc.ActivityLog) - 1; i >= 0; i-- {
		a := doc.ActivityLog[i]
		item := &models.ActivityLogItem{
			ID:        nonEmpty(a.ID),
			UserID:    a.UserID,
			Type:      models.ActivityType(a.Type),
			Details:   a.Details,
			CreatedAt: im.parseTime(a.Timestamp),
		}
		if err := im.Activity.Append(ctx, item, keep); err != nil {
			return rep, fmt.Errorf("import activity %s: %w", a.ID, err)
		}
		rep.Activity++
	}

	im.Log.Info("snapshot imported",
		"users", rep.Users, "images", rep.Images, "videos", rep.Videos, "chat_messages", rep.ChatMessages,
		"payments", rep.Payments, "plans", rep.Plans, "promos", rep.Promos, "activity", rep.Activity, "skipped", rep.Skipped)
	return rep, nil
}

func (im *Importer) importUser(ctx context.Context, u User, rep *Report) error {
	hash, err := im.passwordHash(u.PasswordHash)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", u.ID, err)
	}
	day := u.RewardCycleDay
	if day < 1 {
		day = 1
	}
	user := &models.User{
		ID:             u.ID,
		FullName:       strings.TrimSpace(u.FullName),
		Email:          strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash:   hash,
		Credits:        clampCredits(u.Credits),
		IsAdmin:        u.IsAdmin,
		RewardCycleDay: day,
		CreatedAt:      im.Clock.Now(),
		UpdatedAt:      im.Clock.Now(),
	}
	if u.LastLogin != "" {
		t := im.parseTime(u.LastLogin)
		user.LastLogin = &t
	}
	if u.LastRewardClaim != nil && *u.LastRewardClaim != "" {
		t := im.parseTime(*u.LastRewardClaim)
		user.LastRewardClaim = &t
	}
	if err := im.Users.Create(ctx, user); err != nil {
		return fmt.Errorf("import user %s: %w", u.ID, err)
	}
	rep.Users++

	for i := len(u.History) - 1; i >= 0; i-- {
		if err := im.importImage(ctx, user.ID, u.History[i], rep); err != nil {
			return err
		}
	}

	for i := len(u.VideoHistory) - 1; i >= 0; i-- {
		v := u.VideoHistory[i]
		item := &models.VideoHistoryItem{
			ID:            nonEmpty(v.ID),
			UserID:        user.ID,
			Prompt:        v.Prompt,
			OperationID:   v.OperationID,
			Status:        models.VideoStatus(v.Status),
			VideoURL:      v.VideoURL,
			FailureReason: v.FailureReason,
			CreatedAt:     im.parseTime(v.Timestamp),
		}
		if item.OperationID == "" {
			rep.Skipped++
			continue
		}
		if item.Status != models.VideoPending {
			resolved := item.CreatedAt
			item.ResolvedAt = &resolved
		}
		if err := im.Videos.Add(ctx, item); err != nil {
			return fmt.Errorf("import video %s: %w", v.ID, err)
		}
		rep.Videos++
	}

	for i := len(u.ChatHistory) - 1; i >= 0; i-- {
		session := u.ChatHistory[i]
		at := im.parseTime(session.Timestamp)
		msgs := make([]models.ChatMessage, 0, len(session.Messages))
		for _, m := range session.Messages {
			msg := models.ChatMessage{
				ID:        nonEmpty(m.ID),
				UserID:    user.ID,
				SessionID: session.ID,
				Sender:    models.ChatSender(m.Sender),
				Text:      m.Text,
				CreatedAt: at,
			}
			for _, src := range m.Sources {
				msg.Sources = append(msg.Sources, models.ChatSource{Title: src.Title, URI: src.URI})
			}
			msgs = append(msgs, msg)
		}
		if len(msgs) == 0 {
			continue
		}
		if err := im.Chats.Append(ctx, msgs...); err != nil {
			return fmt.Errorf("import chat session %s: %w", session.ID, err)
		}
		rep.ChatMessages += len(msgs)
	}
	return nil
}

func (im *Importer) importImage(ctx context.Context, userID string, h ImageItem, rep *Report) error {
	if im.Blobs == nil {
		rep.Skipped++
		return nil
	}
	urls := make([]string, 0, len(h.Images))
	for _, img := range h.Images {
		data, contentType, err := decodeImage(img.Base64)
		if err != nil {
			im.Log.Warn("skipping undecodable image", "history_id", h.ID, "image_id", img.ID, "err", err)
			continue
		}
		url, err := im.Blobs.Upload(ctx, "images", data, contentType)
		if err != nil {
			return fmt.Errorf("upload image %s: %w", img.ID, err)
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		rep.Skipped++
		return nil
	}
	aspect := h.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	item := &models.ImageHistoryItem{
		ID:          nonEmpty(h.ID),
		UserID:      userID,
		Kind:        models.ImageKindGenerate,
		Prompt:      h.Prompt,
		AspectRatio: aspect,
		ImageURLs:   urls,
		CreatedAt:   im.parseTime(h.Timestamp),
	}
	if err := im.Images.AddImage(ctx, item); err != nil {
		return fmt.Errorf("import image history %s: %w", h.ID, err)
	}
	rep.Images++
	return nil
}

// passwordHash turns the legacy reversible hash into a real one. Anything
// else is kept as is.
func (im *Importer) passwordHash(legacy string) (string, error) {
	plain, ok := strings.CutPrefix(legacy, legacyHashPrefix)
	if !ok {
		return legacy, nil
	}
	return im.Hasher.Hash(plain)
}

// parseTime falls back to the import time for missing or malformed stamps.
func (im *Importer) parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return im.Clock.Now()
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(s string) ([]byte, string, error) {
	contentType := "image/png"
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("data url without payload")
		}
		if mime, _, _ := strings.Cut(header, ";"); mime != "" {
			contentType = mime
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// clampCredits bounds the legacy admin balance, which exceeded int64.
func clampCredits(v float64) int64 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}

func roundPrice(v float64) int64 {
	return int64(math.Round(v))
}

func validStatus(s models.PaymentStatus) bool {
	return s == models.PaymentPending || s == models.PaymentApproved || s == models.PaymentRejected
}

func nonEmpty(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func rewardSettings(rs RewardSettings) models.RewardSettings {
	return models.RewardSettings{CycleDays: rs.CycleDays, Rewards: rs.Rewards}
}

func featureFlags(f FeatureFlags) models.FeatureFlags {
	return models.FeatureFlags{
		ImageStudioEnabled:    f.ImageStudio,
		VideoGeneratorEnabled: f.VideoGenerator,
		DailyRewardEnabled:    f.DailyReward,
		ChatBotEnabled:        f.ChatBot,
		PurchaseSystemEnabled: f.PurchaseSystem,
	}
}

func paymentSettings(ps PaymentSettings) models.PaymentSettings {
	return models.PaymentSettings{
		EasypaisaAccountNumber: ps.EasypaisaAccountNumber,
		JazzcashAccountNumber:  ps.JazzcashAccountNumber,
		UPIID:                  ps.UPIID,
	}
}

func defaultSettings() map[string]any {
	rs := service.DefaultRewardSettings()
	flags := service.DefaultFeatureFlags()
	ps := service.DefaultPaymentSettings()
	return map[string]any{
		"rewardSettings": RewardSettings{CycleDays: rs.CycleDays, Rewards: rs.Rewards},
		"featureFlags": FeatureFlags{
			ImageStudio:    flags.ImageStudioEnabled,
			VideoGenerator: flags.VideoGeneratorEnabled,
			DailyReward:    flags.DailyRewardEnabled,
			ChatBot:        flags.ChatBotEnabled,
			PurchaseSystem: flags.PurchaseSystemEnabled,
		},
		"paymentSettings": PaymentSettings{
			EasypaisaAccountNumber: ps.EasypaisaAccountNumber,
			JazzcashAccountNumber:  ps.JazzcashAccountNumber,
			UPIID:                  ps.UPIID,
		},
	}
}
