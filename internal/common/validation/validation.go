package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxLabelLength  = 100
	MaxPrizeLength  = 256
	MaxReasonLength = 512

	MinReminderDuration = 5 * time.Second
	MaxReminderDuration = 365 * 24 * time.Hour

	MinGiveawayDuration = 10 * time.Second
	MaxGiveawayDuration = 90 * 24 * time.Hour

	MaxWinnerCount = 50
)

// ValidateLabel checks a reminder label.
func ValidateLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return fmt.Errorf("label cannot exceed %d characters", MaxLabelLength)
	}
	return nil
}

// ValidatePrize checks a giveaway prize description.
func ValidatePrize(prize string) error {
	prize = strings.TrimSpace(prize)
	if prize == "" {
		return fmt.Errorf("prize cannot be empty")
	}
	if utf8.RuneCountInString(prize) > MaxPrizeLength {
		return fmt.Errorf("prize cannot exceed %d characters", MaxPrizeLength)
	}
	return nil
}

// ValidateReason checks an optional moderation reason.
func ValidateReason(reason string) error {
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return fmt.Errorf("reason cannot exceed %d characters", MaxReasonLength)
	}
	return nil
}

// ValidateWinnerCount checks the number of winners of a giveaway.
func ValidateWinnerCount(n int) error {
	if n < 1 {
		return fmt.Errorf("winner count must be at least 1")
	}
	if n > MaxWinnerCount {
		return fmt.Errorf("winner count cannot exceed %d", MaxWinnerCount)
	}
	return nil
}

// ValidateDuration checks that d lies within [min, max].
func ValidateDuration(d, min, max time.Duration) error {
	if d < min {
		return fmt.Errorf("duration must be at least %s", min)
	}
	if d > max {
		return fmt.Errorf("duration cannot exceed %s", max)
	}
	return nil
}
