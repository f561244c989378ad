// Package snapshot reads the single-document JSON export of the legacy studio
// and imports it into the stores.
//
// Older exports carry no schemaVersion (version 0). Decode upgrades them step
// by step to CurrentVersion before mapping them onto typed structs.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

const CurrentVersion = 2

var (
	ErrMalformed          = errors.New("snapshot is not valid JSON")
	ErrUnsupportedVersion = errors.New("snapshot schema version is not supported")
)

type Document struct {
	SchemaVersion   int              `json:"schemaVersion"`
	Users           []User           `json:"users"`
	PromoCodes      []PromoCode      `json:"promoCodes"`
	CreditPlans     []Plan           `json:"creditPlans"`
	RewardSettings  RewardSettings   `json:"rewardSettings"`
	FeatureFlags    FeatureFlags     `json:"featureFlags"`
	PaymentSettings PaymentSettings  `json:"paymentSettings"`
	PaymentRequests []PaymentRequest `json:"paymentRequests"`
	ActivityLog     []Activity       `json:"activityLog"`
}

type User struct {
	ID              string        `json:"id"`
	FullName        string        `json:"fullName"`
	Email           string        `json:"email"`
	PasswordHash    string        `json:"passwordHash"`
	Credits         float64       `json:"credits"`
	IsAdmin         bool          `json:"isAdmin"`
	History         []ImageItem   `json:"history"`
	VideoHistory    []VideoItem   `json:"videoHistory"`
	ChatHistory     []ChatSession `json:"chatHistory"`
	LastLogin       string        `json:"lastLogin"`
	LastRewardClaim *string       `json:"lastRewardClaim"`
	RewardCycleDay  int           `json:"rewardCycleDay"`
}

type ImageItem struct {
	ID          string `json:"id"`
	Prompt      string `json:"prompt"`
	Timestamp   string `json:"timestamp"`
	AspectRatio string `json:"aspectRatio"`
	NumImages   int    `json:"numImages"`
	Images      []struct {
		ID     string `json:"id"`
		Base64 string `json:"base64"`
	} `json:"images"`
}

type VideoItem struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt"`
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"`
	OperationID   string `json:"operationId"`
	VideoURL      string `json:"videoUrl"`
	FailureReason string `json:"failureReason"`
}

type ChatSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
	Messages  []struct {
		ID      string `json:"id"`
		Sender  string `json:"sender"`
		Text    string `json:"text"`
		Sources []struct {
			Title string `json:"title"`
			URI   string `json:"uri"`
		} `json:"sources"`
	} `json:"messages"`
}

type Plan struct {
	ID       string  `json:"id"`
	Credits  int64   `json:"credits"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

type PromoCode struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
	IsActive           bool   `json:"isActive"`
}

type RewardSettings struct {
	CycleDays int           `json:"cycleDays"`
	Rewards   map[int]int64 `json:"rewards"`
}

type FeatureFlags struct {
	ImageStudio    bool `json:"isImageStudioEnabled"`
	VideoGenerator bool `json:"isVideoGeneratorEnabled"`
	DailyReward    bool `json:"isDailyRewardEnabled"`
	ChatBot        bool `json:"isChatBotEnabled"`
	PurchaseSystem bool `json:"isPurchaseSystemEnabled"`
}

type PaymentSettings struct {
	EasypaisaAccountNumber string `json:"easypaisaAccountNumber"`
	JazzcashAccountNumber  string `json:"jazzcashAccountNumber"`
	UPIID                  string `json:"upiId"`
}

type PaymentRequest struct {
	ID                string  `json:"id"`
	UserID            string  `json:"userId"`
	UserEmail         string  `json:"userEmail"`
	Timestamp         string  `json:"timestamp"`
	PlanCredits       int64   `json:"planCredits"`
	PlanPrice         float64 `json:"planPrice"`
	PromoCode         string  `json:"promoCode"`
	FinalPrice        float64 `json:"finalPrice"`
	PaymentMethod     string  `json:"paymentMethod"`
	UserAccountNumber string  `json:"userAccountNumber"`
	TransactionID     string  `json:"transactionId"`
	Status            string  `json:"status"`
	RejectionReason   string  `json:"rejectionReason"`
}

type Activity struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId"`
	Type      string `json:"type"`
	Details   string `json:"details"`
}

// Decode parses an export of any supported version. Empty input means there is
// nothing to import and yields (nil, nil).
func Decode(raw []byte) (*Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, ErrMalformed
	}

	version := int(gjson.GetBytes(raw, "schemaVersion").Int())
	if version < 0 || version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if version < CurrentVersion {
		upgraded, err := upgrade(raw, version)
		if err != nil {
			return nil, err
		}
		raw = upgraded
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &doc, nil
}

// migrations[v] upgrades a version v document to v+1 in place.
var migrations = []func(doc map[string]any){
	addVideoHistory,
	fillCollections,
}

func upgrade(raw []byte, from int) ([]byte, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for v := from; v < CurrentVersion; v++ {
		migrations[v](doc)
	}
	doc["schemaVersion"] = CurrentVersion
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return out, nil
}

// addVideoHistory gives every user the videoHistory list that early exports
// lacked.
func addVideoHistory(doc map[string]any) {
	users, _ := doc["users"].([]any)
	for _, u := range users {
		user, ok := u.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := user["videoHistory"].([]any); !ok {
			user["videoHistory"] = []any{}
		}
	}
}

// fillCollections adds the global collections and settings documents that a
// partial export may miss. Missing plans and promo codes stay empty so the
// regular seeding provides them after import.
func fillCollections(doc map[string]any) {
	for _, key := range []string{"users", "promoCodes", "creditPlans", "paymentRequests", "activityLog"} {
		if _, ok := doc[key].([]any); !ok {
			doc[key] = []any{}
		}
	}
	defaults := defaultSettings()
	for key, value := range defaults {
		if _, ok := doc[key].(map[string]any); !ok {
			doc[key] = value
		}
	}
}
