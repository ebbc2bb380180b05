package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-layer/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThreadSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotBeta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("OpenAI-Beta")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/threads", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		msgs, _ := body["messages"].([]any)
		require.Len(t, msgs, 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "thread_abc", "created_at": 1700000000})
	}))
	defer srv.Close()

	client := engine.New(srv.URL, "sk-test")
	thread, err := client.CreateThread(context.Background(), []engine.NewMessage{
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "thread_abc", thread.ID)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "assistants=v2", gotBeta)
}

func TestListMessagesPassesOrderAndLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"id":   "msg_001",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "text", "text": map[string]any{"value": "hi"}},
				},
			}},
		})
	}))
	defer srv.Close()

	client := engine.New(srv.URL, "sk-test")
	msgs, err := client.ListMessages(context.Background(), "thread_abc", "desc", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].PlainText())
}

func TestEngineErrorBodyIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "No thread found with id 'thread_missing'.",
				"type":    "invalid_request_error",
				"code":    "not_found",
			},
		})
	}))
	defer srv.Close()

	client := engine.New(srv.URL, "sk-test")
	_, err := client.GetRun(context.Background(), "thread_missing", "run_001")
	require.Error(t, err)

	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "not_found", engErr.Code)
	assert.Contains(t, engErr.Message, "thread_missing")
}

func TestNonJSONErrorBodyFallsBackToHTTPCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	client := engine.New(srv.URL, "sk-test")
	_, err := client.CreateRun(context.Background(), "thread_abc", "asst_001", "", nil)
	require.Error(t, err)

	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "http_502", engErr.Code)
}

func TestSubmitToolOutputsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/threads/thread_abc/runs/run_001/submit_tool_outputs", r.URL.Path)
		var body struct {
			ToolOutputs []engine.ToolOutput `json:"tool_outputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.ToolOutputs, 1)
		assert.Equal(t, "call_001", body.ToolOutputs[0].ToolCallID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "run_001", "status": "queued"})
	}))
	defer srv.Close()

	client := engine.New(srv.URL, "sk-test")
	run, err := client.SubmitToolOutputs(context.Background(), "thread_abc", "run_001",
		[]engine.ToolOutput{{ToolCallID: "call_001", Output: "{}"}})
	require.NoError(t, err)
	assert.Equal(t, engine.RunStatusQueued, run.Status)
}

func TestRunStatusClassification(t *testing.T) {
	assert.True(t, engine.RunStatusCompleted.Terminal())
	assert.True(t, engine.RunStatusExpired.Terminal())
	assert.False(t, engine.RunStatusRequiresAction.Terminal())
	assert.True(t, engine.RunStatusRequiresAction.Active())
	assert.False(t, engine.RunStatusFailed.Active())
}
