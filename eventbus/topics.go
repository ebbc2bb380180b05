package eventbus

import "time"

// 전역 토픽 선언: 기능별 기본 토픽 이름을 관리합니다.
// 필요시 환경설정으로 교체할 수 있도록 한 곳에서 관리합니다.

var (
	// TopicConversationEvents는 대화 수명주기 이벤트(시작/종료/삭제)를 운반합니다.
	TopicConversationEvents = NewTopic("chat-layer.conversation.events")
	// TopicWebhookDeliveries는 엔드포인트별 웹훅 전송 작업을 운반합니다.
	TopicWebhookDeliveries = NewTopic("chat-layer.webhook.deliveries")
)

var AllTopics = []Topic{
	TopicConversationEvents,
	TopicWebhookDeliveries,
}

// Conversation event types carried on TopicConversationEvents. Webhook
// endpoints subscribe to these names.
const (
	ConversationStarted      = "conversation.started"
	ConversationRunCompleted = "conversation.run.completed"
	ConversationRunFailed    = "conversation.run.failed"
	ConversationDeleted      = "conversation.deleted"
)

// ConversationEvent is the payload published on TopicConversationEvents.
type ConversationEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	AssistantID string    `json:"assistant_id"`
	ThreadID    string    `json:"thread_id"`
	RunID       string    `json:"run_id,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	TokensUsed  int       `json:"tokens_used,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// WebhookDelivery is the payload published on TopicWebhookDeliveries: one
// conversation event bound for one endpoint, so per-endpoint failures retry
// independently.
type WebhookDelivery struct {
	WebhookID string            `json:"webhook_id"`
	EventType string            `json:"event_type"`
	Event     ConversationEvent `json:"event"`
}
