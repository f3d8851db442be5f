package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/notify"
)

func burnedTask() *domain.Task {
	return &domain.Task{ID: uuid.New(), Title: "Old spike", Status: domain.StatusDoing}
}

func TestWebhook_TaskBurned(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	task := burnedTask()
	hook := notify.NewWebhook(srv.URL, "#board")

	require.NoError(t, hook.TaskBurned(context.Background(), uuid.New(), task))

	require.NotNil(t, got)
	assert.Equal(t, "#board", got["channel"])
	assert.Equal(t, "Task burned: Old spike", got["text"])
	blocks, ok := got["blocks"].([]any)
	require.True(t, ok, "blocks must be a JSON array")
	assert.Len(t, blocks, 2)
}

func TestWebhook_TaskBurned_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := notify.NewWebhook(srv.URL, "").TaskBurned(context.Background(), uuid.New(), burnedTask())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.Webhook.TaskBurned")
}

func TestBuildBurnBlocks(t *testing.T) {
	t.Parallel()

	task := burnedTask()
	blocks := notify.BuildBurnBlocks(task, uuid.New())

	require.Len(t, blocks, 2)
	raw, err := json.Marshal(blocks[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Old spike")
	assert.Contains(t, string(raw), "doing")
}
