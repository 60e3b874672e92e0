package entitlement

import "fmt"

// Gate messages for states that carry no per-feature quota arithmetic.
const (
	msgCheckingAvailability = "Checking availability..."
	msgUpgradePrompt        = "You've reached your %s limit. Upgrade to continue."
)

// CheckFeatureAvailability answers "is this feature allowed right now"
// against a usage snapshot. It is pure: no I/O, no mutable state, and it is
// independent of how the snapshot was obtained.
//
// A nil snapshot denies the feature with a loading message; "unknown" is
// never read as "unlimited". A feature with no entry at all is allowed
// unlimited, since an untracked feature is not gated server-side.
func CheckFeatureAvailability(feature string, stats *UsageStats, enforced bool) Decision {
	if !enforced {
		return Decision{Allowed: true}
	}
	if stats == nil {
		return Decision{Allowed: false, Message: msgCheckingAvailability}
	}

	entry := resolveFeature(feature, stats)
	if entry == nil {
		return Decision{Allowed: true}
	}
	if entry.Unlimited || entry.Limit == nil {
		return Decision{
			Allowed:      true,
			CurrentUsage: entry.CurrentUsage,
			Period:       entry.Period,
		}
	}

	limit := *entry.Limit
	d := Decision{
		CurrentUsage: entry.CurrentUsage,
		Limit:        entry.Limit,
		Period:       entry.Period,
	}
	if entry.CurrentUsage < limit {
		d.Allowed = true
		d.Message = remainingMessage(limit-entry.CurrentUsage, entry.Period)
	} else {
		d.Message = fmt.Sprintf(msgUpgradePrompt, feature)
	}
	return d
}

// resolveFeature finds the quota entry for a feature. An exact key match in
// Features always wins; the top-level Exports slot is a legacy fallback for
// the exports feature only.
func resolveFeature(feature string, stats *UsageStats) *FeatureUsage {
	if entry, ok := stats.Features[feature]; ok {
		return &entry
	}
	if feature == FeatureExports && stats.Exports != nil {
		return stats.Exports
	}
	return nil
}

func remainingMessage(remaining int, period PeriodType) string {
	switch period {
	case PeriodTypeDaily:
		return fmt.Sprintf("%d left today", remaining)
	case PeriodTypeSession:
		return fmt.Sprintf("%d left this session", remaining)
	default:
		return fmt.Sprintf("%d left this month", remaining)
	}
}
