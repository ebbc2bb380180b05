package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-layer/cmd/api/dto"
	"chat-layer/eventbus"
)

// Validation runs before any repository access, so a service with a nil
// repository is enough for the rejection paths.
func TestWebhookCreateRejectsBadInput(t *testing.T) {
	svc := NewWebhookService(nil)
	ctx := context.Background()

	testCases := []struct {
		name string
		req  dto.WebhookRequestDTO
	}{
		{
			name: "relative url",
			req:  dto.WebhookRequestDTO{URL: "/hooks", Events: []string{eventbus.ConversationStarted}},
		},
		{
			name: "unsupported scheme",
			req:  dto.WebhookRequestDTO{URL: "ftp://example.com/hook", Events: []string{eventbus.ConversationStarted}},
		},
		{
			name: "no events",
			req:  dto.WebhookRequestDTO{URL: "https://example.com/hook", Events: nil},
		},
		{
			name: "unknown event type",
			req:  dto.WebhookRequestDTO{URL: "https://example.com/hook", Events: []string{"conversation.exploded"}},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			created, secret, err := svc.Create(ctx, testCase.req)
			require.Error(t, err)
			assert.Nil(t, created)
			assert.Empty(t, secret)
		})
	}
}

func TestGenerateSecretFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		secret, err := generateSecret()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(secret, "whsec_"), "secret %q missing prefix", secret)
		// 32 random bytes hex-encoded
		assert.Len(t, secret, len("whsec_")+64)
		assert.False(t, seen[secret], "secrets must not repeat")
		seen[secret] = true
	}
}
