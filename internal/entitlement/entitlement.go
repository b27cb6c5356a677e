// Package entitlement maps a tier to the concrete capabilities the
// client tool is allowed to use. Consumers branch on the capability
// struct, never on the tier itself.
package entitlement

import "smartfile/internal/session"

// Processing priorities reported to the client.
const (
	PriorityStandard = "standard"
	PriorityFast     = "fast"
)

// Entitlement is the full set of client-facing capabilities for a tier.
type Entitlement struct {
	MaxFiles           int    `json:"maxFiles"`
	MaxFileSizeBytes   int64  `json:"maxFileSizeBytes"`
	AllowBatch         bool   `json:"allowBatch"`
	AllowHiResResize   bool   `json:"allowHiResResize"`
	ProcessingPriority string `json:"processingPriority"`
}

var (
	free = Entitlement{
		MaxFiles:           1,
		MaxFileSizeBytes:   2 << 20, // 2 MiB
		AllowBatch:         false,
		AllowHiResResize:   false,
		ProcessingPriority: PriorityStandard,
	}
	premium = Entitlement{
		MaxFiles:           20,
		MaxFileSizeBytes:   15 << 20, // 15 MiB
		AllowBatch:         true,
		AllowHiResResize:   true,
		ProcessingPriority: PriorityFast,
	}
)

// ForTier returns the capabilities for tier. Unknown tiers degrade to
// the free set.
func ForTier(tier session.Tier) Entitlement {
	if tier == session.TierPremium {
		return premium
	}
	return free
}
