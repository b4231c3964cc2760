package model

import "time"

// UserRecord is the raw document-store record for a user as returned by
// the DataProvider. Permission and subscription views are both derived
// from a single fetched record.
type UserRecord struct {
	ID                string                    `json:"id"`
	Email             string                    `json:"email"`
	Name              string                    `json:"name"`
	OrganizationID    string                    `json:"organization_id,omitempty"`
	OrganizationRole  TeamRole                  `json:"organization_role,omitempty"`
	SubscriptionLevel SubscriptionLevel         `json:"subscription_level"`
	Teams             map[string]TeamMembership `json:"teams,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// TeamMembership describes one user's standing inside one team.
// PermissionOverrides entries win over the role-default matrix; an
// absent key means "use the default for the role".
type TeamMembership struct {
	TeamID              string              `json:"team_id"`
	Role                TeamRole            `json:"role"`
	PermissionOverrides map[Permission]bool `json:"permission_overrides,omitempty"`
	JoinedAt            time.Time           `json:"joined_at"`
}

// UserContext is the resolved authorization view of a user, built fresh
// from the DataProvider on each resolution. Callers may cache derived
// decisions but never the context itself.
type UserContext struct {
	UserID           string
	Email            string
	OrganizationID   string
	OrganizationRole TeamRole
	Level            SubscriptionLevel
	Teams            map[string]TeamMembership
}

// Membership returns the membership entry for teamID, if any.
func (c *UserContext) Membership(teamID string) (TeamMembership, bool) {
	m, ok := c.Teams[teamID]
	return m, ok
}

// TeamMember is one row of a team roster as served by the enterprise
// API.
type TeamMember struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     TeamRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Team is the stored team record.
type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	OrganizationID string    `json:"organization_id"`
	OwnerID        string    `json:"owner_id"`
	MemberCount    int       `json:"member_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Organization is the stored organization record.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	TeamCount int       `json:"team_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
