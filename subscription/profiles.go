// subscription/profiles.go
package subscription

import "github.com/cardlyhq/cardly/model"

// profiles is the static level table. Profiles are derived purely from
// the level; nothing here is persisted per user.
var profiles = map[model.SubscriptionLevel]model.SubscriptionProfile{
	model.LevelFree: {
		Level:       model.LevelFree,
		MaxTeams:    0,
		MaxMembers:  0,
		MaxContacts: 100,
		Features:    map[model.Feature]bool{},
	},
	model.LevelBase: {
		Level:       model.LevelBase,
		MaxTeams:    1,
		MaxMembers:  5,
		MaxContacts: 500,
		Features: map[model.Feature]bool{
			model.FeatureTeams: true,
		},
	},
	model.LevelPro: {
		Level:       model.LevelPro,
		MaxTeams:    3,
		MaxMembers:  15,
		MaxContacts: 2500,
		Features: map[model.Feature]bool{
			model.FeatureTeams:          true,
			model.FeatureContactSharing: true,
			model.FeatureAnalytics:      true,
		},
	},
	model.LevelPremium: {
		Level:       model.LevelPremium,
		MaxTeams:    10,
		MaxMembers:  50,
		MaxContacts: 10000,
		Features: map[model.Feature]bool{
			model.FeatureTeams:          true,
			model.FeatureContactSharing: true,
			model.FeatureBulkSharing:    true,
			model.FeatureAnalytics:      true,
			model.FeatureAuditLogs:      true,
			model.FeatureCustomBranding: true,
		},
	},
	model.LevelEnterprise: {
		Level:       model.LevelEnterprise,
		MaxTeams:    model.Unlimited,
		MaxMembers:  model.Unlimited,
		MaxContacts: model.Unlimited,
		Features: map[model.Feature]bool{
			model.FeatureTeams:           true,
			model.FeatureContactSharing:  true,
			model.FeatureBulkSharing:     true,
			model.FeatureAnalytics:       true,
			model.FeatureAuditLogs:       true,
			model.FeatureCustomBranding:  true,
			model.FeatureAPIAccess:       true,
			model.FeaturePrioritySupport: true,
		},
	},
}

// ProfileFor returns the profile for a level, treating unknown levels
// as free.
func ProfileFor(level model.SubscriptionLevel) model.SubscriptionProfile {
	if profile, ok := profiles[level]; ok {
		return profile
	}
	return profiles[model.LevelFree]
}

// HasFeature reports whether a level includes a feature.
func HasFeature(level model.SubscriptionLevel, feature model.Feature) bool {
	return ProfileFor(level).HasFeature(feature)
}

// MinimumLevelFor returns the lowest tier that includes the feature,
// or enterprise when no lower tier carries it.
func MinimumLevelFor(feature model.Feature) model.SubscriptionLevel {
	lowest := model.LevelEnterprise
	for level, profile := range profiles {
		if profile.HasFeature(feature) && level.Rank() < lowest.Rank() {
			lowest = level
		}
	}
	return lowest
}
