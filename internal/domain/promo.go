package domain

import (
	"fmt"
	"time"
)

// PromoUrgency grades how close a promotion is to expiring.
type PromoUrgency string

const (
	// PromoUrgencyNone applies while more than an hour remains.
	PromoUrgencyNone PromoUrgency = "none"
	// PromoUrgencyHigh applies under one hour.
	PromoUrgencyHigh PromoUrgency = "high"
	// PromoUrgencyCritical applies under five minutes.
	PromoUrgencyCritical PromoUrgency = "critical"
)

const (
	promoHighThreshold     = time.Hour
	promoCriticalThreshold = 5 * time.Minute

	// PromoExpiredLabel is the localised banner text once a promotion ends.
	PromoExpiredLabel = "Акция завершена"
)

// PromoCountdown is the derived display state of a promo banner at one
// instant. It carries no persistence; clients re-request or tick locally.
type PromoCountdown struct {
	Expired   bool
	Hours     int
	Minutes   int
	Seconds   int
	Urgency   PromoUrgency
	Remaining time.Duration
}

// Label renders the countdown the way the banner displays it.
func (c PromoCountdown) Label() string {
	if c.Expired {
		return PromoExpiredLabel
	}
	return fmt.Sprintf("%dч %dм %dс", c.Hours, c.Minutes, c.Seconds)
}

// Countdown computes the promo banner state for the given expiry and instant.
// Hours wrap at 24 to match the original banner display.
func Countdown(expiresAt, now time.Time) PromoCountdown {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return PromoCountdown{Expired: true}
	}

	urgency := PromoUrgencyNone
	if remaining < promoCriticalThreshold {
		urgency = PromoUrgencyCritical
	} else if remaining < promoHighThreshold {
		urgency = PromoUrgencyHigh
	}

	totalSeconds := int(remaining / time.Second)
	return PromoCountdown{
		Hours:     (totalSeconds / 3600) % 24,
		Minutes:   (totalSeconds / 60) % 60,
		Seconds:   totalSeconds % 60,
		Urgency:   urgency,
		Remaining: remaining,
	}
}
