package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bracket-be/internal/config"
	"bracket-be/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVotingHandlerForValidation() *VotingHandler {
	// Requests that fail validation never reach the services.
	return NewVotingHandler(nil, nil, &config.Config{}, logger.NewNop())
}

func TestSubmitVoteValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "malformed json",
			body:     `{not json`,
			wantCode: "InvalidInput",
		},
		{
			name:     "missing match id",
			body:     `{"entrantId":"8a2b6f9e-1c3d-4e5f-8a9b-0c1d2e3f4a5b"}`,
			wantCode: "InvalidInput",
		},
		{
			name:     "match id is not a uuid",
			body:     `{"matchId":"42","entrantId":"8a2b6f9e-1c3d-4e5f-8a9b-0c1d2e3f4a5b"}`,
			wantCode: "InvalidInput",
		},
		{
			name:     "entrant id is not a uuid",
			body:     `{"matchId":"8a2b6f9e-1c3d-4e5f-8a9b-0c1d2e3f4a5b","entrantId":"nope"}`,
			wantCode: "InvalidInput",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newVotingHandlerForValidation()

			req := httptest.NewRequest(http.MethodPost, "/api/vote", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.SubmitVote(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
