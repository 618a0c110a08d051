package redis

import (
	"fmt"

	"github.com/mcoot/cfratings/internal/storage"
)

// Key prefix for all persisted extension state
const keyPrefix = "cfratings"

// key returns the Redis key for one storage key within a profile
func key(profile, name string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, profile, name)
}

func tokenKey(profile string) string { return key(profile, storage.KeyToken) }

func userKey(profile string) string { return key(profile, storage.KeyUser) }

func selectedGroupKey(profile string) string { return key(profile, storage.KeySelectedGroup) }

func nonMemberDisplayKey(profile string) string { return key(profile, storage.KeyNonMemberDisplay) }

// ratingCacheKey is a HASH of username -> JSON cache entry
func ratingCacheKey(profile string) string { return key(profile, storage.KeyRatingCache) }
