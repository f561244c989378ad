package service

import (
	"time"

	"github.com/digkill/genstudio/internal/models"
)

const (
	rewardCooldown = 24 * time.Hour
	rewardResetGap = 48 * time.Hour
)

type RewardStatus struct {
	AvailableReward      int64      `json:"available_reward"`
	DayOfCycle           int        `json:"day_of_cycle"`
	NextClaimAvailableAt *time.Time `json:"next_claim_available_at"`
}

// Claimable reports whether a claim made now would grant credits.
func (s RewardStatus) Claimable() bool {
	return s.NextClaimAvailableAt == nil && s.AvailableReward > 0
}

// ResolveRewardStatus is the single source of truth for which cycle day a user
// is on and what it pays. Both the status endpoint and ClaimReward use it.
//
// A claim within the last 24h locks the reward until the cooldown ends. A gap
// of 48h or more restarts the cycle at day 1. A stored day outside the current
// cycle (the cycle was shortened) also restarts at day 1.
func ResolveRewardStatus(user models.User, settings models.RewardSettings, now time.Time) RewardStatus {
	day := user.RewardCycleDay
	if day < 1 || day > settings.CycleDays {
		day = 1
	}

	if user.LastRewardClaim != nil {
		last := *user.LastRewardClaim
		since := now.Sub(last)
		if since < rewardCooldown {
			next := last.Add(rewardCooldown)
			return RewardStatus{DayOfCycle: day, NextClaimAvailableAt: &next}
		}
		if since >= rewardResetGap {
			day = 1
		}
	}

	if user.IsAdmin {
		return RewardStatus{DayOfCycle: day}
	}
	return RewardStatus{AvailableReward: settings.RewardFor(day), DayOfCycle: day}
}

// nextCycleDay is the day stored after a successful claim on day.
func nextCycleDay(day, cycleDays int) int {
	day++
	if day > cycleDays {
		return 1
	}
	return day
}
