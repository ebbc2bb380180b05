package assistant

import (
	"context"
	"errors"

	"chat-layer/engine"
	"chat-layer/models"
	"chat-layer/repositories"
)

// MessageStore is the persistence slice the reconciler and orchestrator
// need. *repositories.ChatMessageRepository satisfies it.
type MessageStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error)
	FindBySessionAndRemoteID(ctx context.Context, sessionID, remoteID string) (*models.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// Reconciler writes remote messages into local storage exactly once per
// (session, remote message id) pair. The unique index is the authority; the
// pre-check only spares a doomed insert on the common repeat path.
type Reconciler struct {
	store MessageStore
}

func NewReconciler(store MessageStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile persists remote under sessionID. Returns the stored message, or
// (nil, nil) when it was already recorded — by an earlier poll, a parallel
// observer or a previous instance. Non-text content parts contribute nothing
// to the stored text but do not fail the write.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string, remote *engine.Message) (*models.ChatMessage, error) {
	existing, err := r.store.FindBySessionAndRemoteID(ctx, sessionID, remote.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      remote.Role,
		Content:   remote.PlainText(),
		Metadata:  map[string]any{models.MetaRemoteMessageID: remote.ID},
	}
	created, err := r.store.Insert(ctx, msg)
	if errors.Is(err, repositories.ErrDuplicateMessage) {
		// 경합에서 진 쪽: 이미 기록된 메시지이므로 실패가 아니다.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}
