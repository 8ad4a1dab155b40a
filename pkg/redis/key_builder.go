package redis

import "fmt"

// Key templates. Everything is namespaced under the environment prefix so
// staging and production can share one Redis.
const (
	keyCurrentMatch = "bracket:current_match"
	keyBracket      = "bracket:season:%s"
	keyLastFinished = "bracket:last_finished"
	keyVoteAttempt  = "vote:attempt:%s:%s" // vote:attempt:{matchID}:{voterKey}
)

// KeyBuilder builds environment-prefixed Redis keys.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a key builder with an environment-based prefix.
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}
	return &KeyBuilder{prefix: prefix}
}

// BuildKey prepends the environment prefix.
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix.
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyCurrentMatch is the cache key for the active match payload.
func (kb *KeyBuilder) KeyCurrentMatch() string {
	return kb.BuildKey(keyCurrentMatch)
}

// KeyBracket is the cache key for a season's full bracket payload.
func (kb *KeyBuilder) KeyBracket(seasonID string) string {
	return kb.BuildKey(fmt.Sprintf(keyBracket, seasonID))
}

// KeyLastFinished is the cache key for the most recently finished match.
func (kb *KeyBuilder) KeyLastFinished() string {
	return kb.BuildKey(keyLastFinished)
}

// KeyVoteAttempt is the throttle key for one voter's attempts at one match.
func (kb *KeyBuilder) KeyVoteAttempt(matchID, voterKey string) string {
	return kb.BuildKey(fmt.Sprintf(keyVoteAttempt, matchID, voterKey))
}
