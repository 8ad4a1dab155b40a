package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeyBuilder(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantPrefix  string
	}{
		{name: "production", environment: "production", wantPrefix: "prod"},
		{name: "development", environment: "development", wantPrefix: "staging"},
		{name: "staging", environment: "staging", wantPrefix: "staging"},
		{name: "test", environment: "test", wantPrefix: "staging"},
		{name: "unknown defaults to prod", environment: "something-else", wantPrefix: "prod"},
		{name: "empty defaults to prod", environment: "", wantPrefix: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			assert.Equal(t, tt.wantPrefix, kb.GetPrefix())
		})
	}
}

func TestKeyBuilder_Keys(t *testing.T) {
	kb := NewKeyBuilder("production")

	assert.Equal(t, "prod:bracket:current_match", kb.KeyCurrentMatch())
	assert.Equal(t, "prod:bracket:season:s-1", kb.KeyBracket("s-1"))
	assert.Equal(t, "prod:bracket:last_finished", kb.KeyLastFinished())
	assert.Equal(t, "prod:vote:attempt:m-1:abc123", kb.KeyVoteAttempt("m-1", "abc123"))
}

func TestKeyBuilder_EnvironmentIsolation(t *testing.T) {
	prod := NewKeyBuilder("production")
	staging := NewKeyBuilder("staging")

	assert.NotEqual(t, prod.KeyCurrentMatch(), staging.KeyCurrentMatch())
	assert.NotEqual(t, prod.KeyVoteAttempt("m", "v"), staging.KeyVoteAttempt("m", "v"))
}
