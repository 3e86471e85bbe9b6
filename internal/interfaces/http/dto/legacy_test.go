package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectResponses(t *testing.T) {
	tests := []struct {
		name     string
		resp     RedirectResponse
		expected string
	}{
		{
			name:     "login",
			resp:     NewLoginRedirect("https://validate.example.org/login"),
			expected: `{"redirect":"https://validate.example.org/login","reason":"401 - Unauthorized"}`,
		},
		{
			name:     "dashboard",
			resp:     NewDashboardRedirect(),
			expected: `{"redirect":"/dashboard","reason":"403 - Forbidden"}`,
		},
		{
			name:     "waiting zone",
			resp:     NewWaitingZoneRedirect(),
			expected: `{"redirect":"/waiting_zone","reason":"403 - Forbidden"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestNewBatchResponse_EchoesIDs(t *testing.T) {
	data, err := json.Marshal(NewBatchResponse("12, 13,12"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","id":"12, 13,12"}`, string(data))
}
