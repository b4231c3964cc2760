// dao/user_dao.go
package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/cardlyhq/cardly/db"
	cardly_errors "github.com/cardlyhq/cardly/errors"
	logger "github.com/cardlyhq/cardly/logging"
	"github.com/cardlyhq/cardly/model"
	helper_util "github.com/cardlyhq/cardly/util/helper"
)

// collectionLabels maps FieldWrite collection names onto node labels.
// Unknown collections are rejected before the transaction opens.
var collectionLabels = map[string]string{
	"users":         "User",
	"teams":         "Team",
	"organizations": "Organization",
}

// writeLockTTL bounds how long a crashed writer can hold a document
// lock.
const writeLockTTL = 5 * time.Second

// UserDAO is the Neo4j-backed DataProvider. User records and their team
// memberships live in the graph; a shared Redis layer fronts reads.
type UserDAO struct {
	Driver neo4j.Driver
}

func NewUserDAO(driver neo4j.Driver) *UserDAO {
	dao := &UserDAO{Driver: driver}
	// Ensure unique constraint on User ID
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for User", zap.Error(err))
	}
	return dao
}

func (dao *UserDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on User ID")
	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_user_id IF NOT EXISTS
        FOR (u:User) REQUIRE u.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on User ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on User ID")
	return nil
}

// GetUserRecord fetches one user with all team memberships in a single
// read. Redis is consulted first; a graph read repopulates it.
func (dao *UserDAO) GetUserRecord(ctx context.Context, userID string) (*model.UserRecord, error) {
	start := time.Now()

	if db.RedisClient != nil {
		cached, err := db.GetCachedUserRecord(ctx, userID)
		if err != nil {
			logger.Warn("Redis read failed, falling through to Neo4j",
				zap.Error(err),
				zap.String("userID", userID))
		} else if cached != nil {
			return cached, nil
		}
	}

	value, err := db.ExecuteReadTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $id})
        OPTIONAL MATCH (u)-[m:MEMBER_OF]->(t:Team)
        RETURN u, collect({teamID: t.id, role: m.role, overrides: m.permissionOverrides, joinedAt: m.joinedAt}) AS memberships
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": userID})
		if err != nil {
			return nil, cardly_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			record, err := mapNodeToUserRecord(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map user node to record: %w", err)
			}
			if memberships, ok := result.Record().Values[1].([]interface{}); ok {
				record.Teams = mapMemberships(memberships)
			}
			return record, nil
		}

		return nil, cardly_errors.ErrUserNotFound
	})

	if err != nil {
		if errors.Is(err, cardly_errors.ErrUserNotFound) {
			logger.Warn("User record not found",
				zap.String("userID", userID),
				zap.Duration("duration", time.Since(start)))
			return nil, cardly_errors.ErrUserNotFound
		}
		logger.Error("Failed to fetch user record",
			zap.Error(err),
			zap.String("userID", userID),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	record := value.(*model.UserRecord)

	if db.RedisClient != nil {
		if err := db.CacheUserRecord(ctx, record); err != nil {
			logger.Warn("Failed to cache user record", zap.Error(err), zap.String("userID", userID))
		}
	}

	logger.Debug("User record retrieved",
		zap.String("userID", userID),
		zap.Duration("duration", time.Since(start)))
	return record, nil
}

// TransactionalUpdate applies all field writes inside one write
// transaction: either every write lands or none do. Each touched
// document is locked in Redis for the duration of the transaction;
// cached copies of touched user records are dropped afterwards.
func (dao *UserDAO) TransactionalUpdate(ctx context.Context, writes []model.FieldWrite) error {
	if len(writes) == 0 {
		return nil
	}

	for _, write := range writes {
		if _, ok := collectionLabels[write.Collection]; !ok {
			return fmt.Errorf("unknown collection %q: %w", write.Collection, cardly_errors.ErrInvalidUserData)
		}
		if write.DocumentID == "" || write.Field == "" {
			return fmt.Errorf("incomplete field write: %w", cardly_errors.ErrInvalidUserData)
		}
	}

	start := time.Now()

	if db.RedisClient != nil {
		acquired, err := dao.lockDocuments(ctx, writes)
		if err != nil {
			return err
		}
		defer func() {
			for _, key := range acquired {
				if err := db.UnlockResource(ctx, key); err != nil {
					logger.Warn("Failed to release document lock", zap.Error(err), zap.String("resource", key))
				}
			}
		}()
	}

	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		for _, write := range writes {
			query := fmt.Sprintf(`
            MATCH (n:%s {id: $id})
            SET n += $props, n.updatedAt = $updatedAt
            RETURN n.id AS id
            `, collectionLabels[write.Collection])

			params := map[string]interface{}{
				"id":        write.DocumentID,
				"props":     map[string]interface{}{write.Field: write.Value},
				"updatedAt": time.Now().Format(time.RFC3339),
			}

			result, err := transaction.Run(query, params)
			if err != nil {
				return nil, cardly_errors.ErrDatabaseOperation
			}
			if !result.Next() {
				return nil, fmt.Errorf("%s/%s: %w", write.Collection, write.DocumentID, cardly_errors.ErrUserNotFound)
			}
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Transactional update failed",
			zap.Error(err),
			zap.Int("writes", len(writes)),
			zap.Duration("duration", duration))
		return err
	}

	if db.RedisClient != nil {
		for _, write := range writes {
			if write.Collection != "users" {
				continue
			}
			if err := db.DeleteCachedUserRecord(ctx, write.DocumentID); err != nil {
				logger.Warn("Failed to drop cached user record",
					zap.Error(err),
					zap.String("userID", write.DocumentID))
			}
		}
	}

	logger.Info("Transactional update applied",
		zap.Int("writes", len(writes)),
		zap.Duration("duration", duration))
	return nil
}

// lockDocuments acquires the Redis lock for every document touched by
// the writes and returns the keys it holds. On any failure the locks
// taken so far are released before returning.
func (dao *UserDAO) lockDocuments(ctx context.Context, writes []model.FieldWrite) ([]string, error) {
	acquired := make([]string, 0, len(writes))
	for _, key := range lockKeysFor(writes) {
		locked, err := db.LockResource(ctx, key, writeLockTTL)
		if err != nil || !locked {
			for _, held := range acquired {
				if unlockErr := db.UnlockResource(ctx, held); unlockErr != nil {
					logger.Warn("Failed to release document lock", zap.Error(unlockErr), zap.String("resource", held))
				}
			}
			if err != nil {
				return nil, fmt.Errorf("failed to lock %s: %w", key, err)
			}
			return nil, cardly_errors.NewServer(fmt.Sprintf("document %s is locked by another writer", key), nil)
		}
		acquired = append(acquired, key)
	}
	return acquired, nil
}

// lockKeysFor returns one lock key per touched document, deduplicated
// and sorted so concurrent writers acquire in the same order and cannot
// deadlock.
func lockKeysFor(writes []model.FieldWrite) []string {
	seen := make(map[string]bool, len(writes))
	keys := make([]string, 0, len(writes))
	for _, write := range writes {
		key := write.Collection + ":" + write.DocumentID
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Helper function to map Neo4j Node to UserRecord struct
func mapNodeToUserRecord(node neo4j.Node) (*model.UserRecord, error) {
	props := node.Props
	record := &model.UserRecord{}

	record.ID, _ = props["id"].(string)
	record.Email, _ = props["email"].(string)
	record.Name, _ = props["name"].(string)
	record.OrganizationID, _ = props["organizationID"].(string)
	if role, ok := props["organizationRole"].(string); ok {
		record.OrganizationRole = model.TeamRole(role)
	}
	if level, ok := props["subscriptionLevel"].(string); ok {
		record.SubscriptionLevel = model.ParseSubscriptionLevel(level)
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		t, err := helper_util.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse createdAt: %w", err)
		}
		record.CreatedAt = t
	}
	if updatedAt, ok := props["updatedAt"].(string); ok {
		t, err := helper_util.ParseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updatedAt: %w", err)
		}
		record.UpdatedAt = t
	}

	return record, nil
}

func mapMemberships(raw []interface{}) map[string]model.TeamMembership {
	teams := make(map[string]model.TeamMembership, len(raw))
	for _, entry := range raw {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		teamID, _ := fields["teamID"].(string)
		if teamID == "" {
			continue
		}

		membership := model.TeamMembership{TeamID: teamID}
		if role, ok := fields["role"].(string); ok {
			membership.Role = model.TeamRole(role)
		}
		if overridesJSON, ok := fields["overrides"].(string); ok && overridesJSON != "" {
			if err := json.Unmarshal([]byte(overridesJSON), &membership.PermissionOverrides); err != nil {
				logger.Warn("Failed to parse permission overrides",
					zap.Error(err),
					zap.String("teamID", teamID))
			}
		}
		// joinedAt arrives as a driver time value or an RFC3339 string
		// depending on how the relationship was written; absent means
		// the zero time.
		if joinedAt, err := helper_util.ParseNullableTime(fields["joinedAt"]); err == nil && joinedAt != nil {
			membership.JoinedAt = *joinedAt
		}

		teams[teamID] = membership
	}
	return teams
}
