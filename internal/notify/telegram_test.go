package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mengleangdeaun/foodie-sub002/internal/queue"
	"github.com/mengleangdeaun/foodie-sub002/internal/resilience"
)

func TestSendMessagePostsToBotEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := &Telegram{
		BotToken: "123:abc",
		ChatID:   "-100200300",
		BaseURL:  srv.URL,
		Logger:   zerolog.Nop(),
	}
	err := tg.SendMessage(context.Background(), "New walk_in order")
	require.NoError(t, err)
	require.Equal(t, "/bot123:abc/sendMessage", gotPath)
	require.Equal(t, "-100200300", gotBody["chat_id"])
	require.Equal(t, "New walk_in order", gotBody["text"])
}

func TestSendMessageRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := &Telegram{
		BotToken: "123:abc",
		ChatID:   "99",
		BaseURL:  srv.URL,
		HTTP: resilience.HTTPClient{
			Client:      srv.Client(),
			MaxAttempts: 3,
			BaseBackoff: time.Millisecond,
		},
		Logger: zerolog.Nop(),
	}
	require.NoError(t, tg.SendMessage(context.Background(), "hello"))
	require.Equal(t, 3, calls)
}

func TestSendMessageRejectsUnconfigured(t *testing.T) {
	tg := &Telegram{}
	require.Error(t, tg.SendMessage(context.Background(), "x"))
}

func TestTelegramHandleTaskBadPayloadSkipsRetry(t *testing.T) {
	tg := &Telegram{BotToken: "t", ChatID: "c", Logger: zerolog.Nop()}
	task := asynq.NewTask(queue.TaskTelegramAlert, []byte("not json"))
	err := tg.HandleTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestTelegramHandleTaskDelivers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := &Telegram{BotToken: "t", ChatID: "c", BaseURL: srv.URL, Logger: zerolog.Nop()}
	raw, err := json.Marshal(queue.TelegramAlertPayload{OrderID: "o1", Text: "ready"})
	require.NoError(t, err)
	require.NoError(t, tg.HandleTask(context.Background(), asynq.NewTask(queue.TaskTelegramAlert, raw)))
}
