package model

// SubscriptionLevel is the closed set of billing tiers. Levels are
// strictly ordered: free < base < pro < premium < enterprise.
type SubscriptionLevel string

const (
	LevelFree       SubscriptionLevel = "free"
	LevelBase       SubscriptionLevel = "base"
	LevelPro        SubscriptionLevel = "pro"
	LevelPremium    SubscriptionLevel = "premium"
	LevelEnterprise SubscriptionLevel = "enterprise"
)

var levelRanks = map[SubscriptionLevel]int{
	LevelFree:       0,
	LevelBase:       1,
	LevelPro:        2,
	LevelPremium:    3,
	LevelEnterprise: 4,
}

// Rank returns the ordering position of the level. Unknown levels rank
// as free.
func (l SubscriptionLevel) Rank() int {
	return levelRanks[l]
}

// Valid reports whether l is a known tier.
func (l SubscriptionLevel) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// ParseSubscriptionLevel maps a raw record value to a level, defaulting
// to free for anything unrecognized.
func ParseSubscriptionLevel(s string) SubscriptionLevel {
	level := SubscriptionLevel(s)
	if !level.Valid() {
		return LevelFree
	}
	return level
}

// Feature is a tier-gated capability flag.
type Feature string

const (
	FeatureTeams           Feature = "teams"
	FeatureContactSharing  Feature = "contact_sharing"
	FeatureBulkSharing     Feature = "bulk_sharing"
	FeatureAnalytics       Feature = "analytics"
	FeatureAuditLogs       Feature = "audit_logs"
	FeatureCustomBranding  Feature = "custom_branding"
	FeatureAPIAccess       Feature = "api_access"
	FeaturePrioritySupport Feature = "priority_support"
)

// Unlimited marks a numeric limit as uncapped.
const Unlimited = -1

// SubscriptionProfile is the immutable set of limits and features
// derived purely from a level. It is never persisted per user beyond
// the level field itself.
type SubscriptionProfile struct {
	Level       SubscriptionLevel `json:"level"`
	MaxTeams    int               `json:"max_teams"`
	MaxMembers  int               `json:"max_members"`
	MaxContacts int               `json:"max_contacts"`
	Features    map[Feature]bool  `json:"features"`
}

// HasFeature reports whether the profile's tier includes the feature.
func (p SubscriptionProfile) HasFeature(f Feature) bool {
	return p.Features[f]
}
