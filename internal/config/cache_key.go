package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TaxonomySetKey returns the cache key for a bank's taxonomy set
func (r *CacheKeyStruct) TaxonomySetKey(userID, bankID int64) string {
	return fmt.Sprintf("user:%d:bank:%d:taxonomy", userID, bankID)
}

// QuestionBanksKey returns the cache key for a user's bank registry
func (r *CacheKeyStruct) QuestionBanksKey(userID int64) string {
	return fmt.Sprintf("user:%d:banks", userID)
}

var CacheKey = NewCacheKeyStruct()

// ChangeFeedChannel returns the pub/sub channel carrying a bank's change
// records.
func (r *CacheKeyStruct) ChangeFeedChannel(userID, bankID int64) string {
	return fmt.Sprintf("user:%d:bank:%d:changes", userID, bankID)
}
