package assistant_test

import (
	"context"
	"testing"

	"chat-layer/assistant"
	"chat-layer/engine"
	"chat-layer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteText(id, role, text string) *engine.Message {
	return &engine.Message{
		ID:   id,
		Role: role,
		Content: []engine.ContentPart{
			{Type: "text", Text: &engine.TextContent{Value: text}},
		},
	}
}

func TestReconcileStoresOnce(t *testing.T) {
	store := newMemMessageStore()
	rec := assistant.NewReconciler(store)

	msg := remoteText("msg_001", models.RoleAssistant, "hello")

	created, err := rec.Reconcile(context.Background(), "sess_1", msg)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "msg_001", created.RemoteMessageID())
	assert.Equal(t, "hello", created.Content)

	// repeat observation of the same remote message is a no-op
	again, err := rec.Reconcile(context.Background(), "sess_1", msg)
	require.NoError(t, err)
	assert.Nil(t, again)

	all, err := store.ListBySession(context.Background(), "sess_1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReconcileLosingInsertRaceIsNotAnError(t *testing.T) {
	store := newMemMessageStore()
	store.dupOnInsert = true
	rec := assistant.NewReconciler(store)

	created, err := rec.Reconcile(context.Background(), "sess_1", remoteText("msg_001", models.RoleAssistant, "hello"))
	require.NoError(t, err)
	assert.Nil(t, created)
}

func TestReconcileSameRemoteIDDifferentSessions(t *testing.T) {
	store := newMemMessageStore()
	rec := assistant.NewReconciler(store)

	_, err := rec.Reconcile(context.Background(), "sess_1", remoteText("msg_001", models.RoleUser, "a"))
	require.NoError(t, err)
	created, err := rec.Reconcile(context.Background(), "sess_2", remoteText("msg_001", models.RoleUser, "a"))
	require.NoError(t, err)
	assert.NotNil(t, created)
}

func TestReconcileSkipsNonTextParts(t *testing.T) {
	store := newMemMessageStore()
	rec := assistant.NewReconciler(store)

	msg := &engine.Message{
		ID:   "msg_002",
		Role: models.RoleAssistant,
		Content: []engine.ContentPart{
			{Type: "image_file"},
			{Type: "text", Text: &engine.TextContent{Value: "caption"}},
		},
	}
	created, err := rec.Reconcile(context.Background(), "sess_1", msg)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "caption", created.Content)
}
