package models

import "time"

type ActivityType string

const (
	ActivityLogin           ActivityType = "login"
	ActivitySignup          ActivityType = "signup"
	ActivityGenerate        ActivityType = "generate"
	ActivityEnhance         ActivityType = "enhance"
	ActivityEdit            ActivityType = "edit"
	ActivityVideoGenerate   ActivityType = "video_generate"
	ActivityChatbotMessage  ActivityType = "chatbot_message"
	ActivityRewardClaim     ActivityType = "reward_claim"
	ActivityPurchaseRequest ActivityType = "purchase_request"
	ActivityAdminAction     ActivityType = "admin_action"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

type PaymentMethod string

const (
	PaymentMethodEasypaisa PaymentMethod = "Easypaisa"
	PaymentMethodJazzcash  PaymentMethod = "Jazzcash"
	PaymentMethodUPI       PaymentMethod = "UPI"
)

// Valid reports whether m is one of the accepted manual payment channels.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodEasypaisa, PaymentMethodJazzcash, PaymentMethodUPI:
		return true
	}
	return false
}

type VideoStatus string

const (
	VideoPending   VideoStatus = "pending"
	VideoCompleted VideoStatus = "completed"
	VideoFailed    VideoStatus = "failed"
)

type ImageKind string

const (
	ImageKindGenerate ImageKind = "generate"
	ImageKindEnhance  ImageKind = "enhance"
	ImageKindEdit     ImageKind = "edit"
)

type ChatSender string

const (
	ChatSenderUser ChatSender = "user"
	ChatSenderBot  ChatSender = "bot"
)

type User struct {
	ID              string     `json:"id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Credits         int64      `json:"credits"`
	IsAdmin         bool       `json:"is_admin"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	LastRewardClaim *time.Time `json:"last_reward_claim,omitempty"`
	RewardCycleDay  int        `json:"reward_cycle_day"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type RewardSettings struct {
	CycleDays int           `json:"cycle_days"`
	Rewards   map[int]int64 `json:"rewards"`
}

// RewardFor returns the configured grant for day, zero when unset.
func (s RewardSettings) RewardFor(day int) int64 {
	if s.Rewards == nil {
		return 0
	}
	return s.Rewards[day]
}

type FeatureFlags struct {
	ImageStudioEnabled    bool `json:"is_image_studio_enabled"`
	VideoGeneratorEnabled bool `json:"is_video_generator_enabled"`
	DailyRewardEnabled    bool `json:"is_daily_reward_enabled"`
	ChatBotEnabled        bool `json:"is_chat_bot_enabled"`
	PurchaseSystemEnabled bool `json:"is_purchase_system_enabled"`
}

type PaymentSettings struct {
	EasypaisaAccountNumber string `json:"easypaisa_account_number"`
	JazzcashAccountNumber  string `json:"jazzcash_account_number"`
	UPIID                  string `json:"upi_id"`
}

type PaymentRequest struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	UserEmail         string        `json:"user_email"`
	PlanID            string        `json:"plan_id"`
	PlanCredits       int64         `json:"plan_credits"`
	PlanPrice         int64         `json:"plan_price"`
	PromoCode         string        `json:"promo_code,omitempty"`
	FinalPrice        int64         `json:"final_price"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	UserAccountNumber string        `json:"user_account_number"`
	TransactionID     string        `json:"transaction_id"`
	Status            PaymentStatus `json:"status"`
	RejectionReason   string        `json:"rejection_reason,omitempty"`
	ProcessedBy       string        `json:"processed_by,omitempty"`
	ProcessedAt       *time.Time    `json:"processed_at,omitempty"`
	CreatedAt         time.Time     `json:"timestamp"`
}

type Plan struct {
	ID        string    `json:"id"`
	Credits   int64     `json:"credits"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PromoCode struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

type ImageHistoryItem struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Kind           ImageKind `json:"kind"`
	Prompt         string    `json:"prompt"`
	AspectRatio    string    `json:"aspect_ratio"`
	ImageURLs      []string  `json:"image_urls"`
	CreditsCharged int64     `json:"credits_charged"`
	CreatedAt      time.Time `json:"timestamp"`
}

type VideoHistoryItem struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Prompt         string      `json:"prompt"`
	OperationID    string      `json:"operation_id"`
	Status         VideoStatus `json:"status"`
	VideoURL       string      `json:"video_url,omitempty"`
	FailureReason  string      `json:"failure_reason,omitempty"`
	CreditsCharged int64       `json:"credits_charged"`
	CreatedAt      time.Time   `json:"timestamp"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}

type ChatSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type ChatMessage struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	SessionID string       `json:"session_id"`
	Sender    ChatSender   `json:"sender"`
	Text      string       `json:"text"`
	Mode      string       `json:"mode,omitempty"`
	Sources   []ChatSource `json:"sources,omitempty"`
	CreatedAt time.Time    `json:"timestamp"`
}

type ActivityLogItem struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Type      ActivityType `json:"type"`
	Details   string       `json:"details"`
	CreatedAt time.Time    `json:"timestamp"`
}

type DashboardStats struct {
	TotalUsers                int64             `json:"total_users"`
	PendingPaymentsCount      int64             `json:"pending_payments_count"`
	TotalCreditsInCirculation int64             `json:"total_credits_in_circulation"`
	RecentActivity            []ActivityLogItem `json:"recent_activity"`
	RecentPendingPayments     []PaymentRequest  `json:"recent_pending_payments"`
}
