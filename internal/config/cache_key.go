package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionAnswersKey returns the cache key for a session's autosaved answers.
func (r *CacheKeyStruct) SessionAnswersKey(testID, userID string) string {
	return fmt.Sprintf("user:%s:test:%s:answers", userID, testID)
}

// SessionStartKey returns the cache key for a session's start timestamp.
func (r *CacheKeyStruct) SessionStartKey(testID, userID string) string {
	return fmt.Sprintf("user:%s:test:%s:session_start", userID, testID)
}

// TestDefinitionKey returns the cache key for a cached test definition.
func (r *CacheKeyStruct) TestDefinitionKey(testID string) string {
	return fmt.Sprintf("test:%s:definition", testID)
}

// UserActiveTestKey returns the cache key marking a live session for one
// (user, test) pair. Keyed per pair so finishing one test never clears
// the marker of another test the same user is sitting.
func (r *CacheKeyStruct) UserActiveTestKey(userID, testID string) string {
	return fmt.Sprintf("user:%s:test:%s:active", userID, testID)
}

var CacheKey = NewCacheKeyStruct()
