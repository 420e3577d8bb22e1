package telegram_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/sitewatch"
	"github.com/fwojciec/sitewatch/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Send(t *testing.T) {
	t.Parallel()

	t.Run("posts the message to the chat", func(t *testing.T) {
		t.Parallel()

		type request struct {
			path   string
			chatID string
			text   string
		}
		reqCh := make(chan request, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			reqCh <- request{path: r.URL.Path, chatID: r.PostForm.Get("chat_id"), text: r.PostForm.Get("text")}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}))
		defer srv.Close()

		client := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL))
		n := telegram.NewNotifier(client, "42")

		err := n.Send(context.Background(), "Change detected!")

		require.NoError(t, err)
		got := <-reqCh
		assert.Equal(t, "/botTOKEN/sendMessage", got.path)
		assert.Equal(t, "42", got.chatID)
		assert.Equal(t, "Change detected!", got.text)
	})

	t.Run("sends to a channel username", func(t *testing.T) {
		t.Parallel()

		chatCh := make(chan string, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			chatCh <- r.PostForm.Get("chat_id")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}))
		defer srv.Close()

		n := telegram.NewNotifier(telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL)), "@sitewatch")

		require.NoError(t, n.Send(context.Background(), "hello"))
		assert.Equal(t, "@sitewatch", <-chatCh)
	})

	t.Run("rejects an invalid chat ID without a request", func(t *testing.T) {
		t.Parallel()

		var called bool
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))
		defer srv.Close()

		n := telegram.NewNotifier(telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL)), "not-a-chat")

		err := n.Send(context.Background(), "hello")

		assert.Equal(t, sitewatch.ENOTIFY, sitewatch.ErrorCode(err))
		assert.False(t, called)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		n := telegram.NewNotifier(telegram.NewClient("SECRET", telegram.WithBaseURL(srv.URL)), "42")

		err := n.Send(ctx, "hello")

		assert.Equal(t, sitewatch.ENOTIFY, sitewatch.ErrorCode(err))
		assert.Contains(t, err.Error(), "context canceled")
		assert.NotContains(t, err.Error(), "SECRET")
	})

	t.Run("API error is a notify error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		}))
		defer srv.Close()

		n := telegram.NewNotifier(telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL)), "42")

		err := n.Send(context.Background(), "hello")

		require.Error(t, err)
		assert.Equal(t, sitewatch.ENOTIFY, sitewatch.ErrorCode(err))
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("transport failure does not leak the token", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		n := telegram.NewNotifier(telegram.NewClient("SECRET", telegram.WithBaseURL(srv.URL)), "42")

		err := n.Send(context.Background(), "hello")

		require.Error(t, err)
		assert.Equal(t, sitewatch.ENOTIFY, sitewatch.ErrorCode(err))
		assert.NotContains(t, err.Error(), "SECRET")
	})

	t.Run("truncates long messages", func(t *testing.T) {
		t.Parallel()

		textCh := make(chan string, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			textCh <- r.PostForm.Get("text")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}))
		defer srv.Close()

		n := telegram.NewNotifier(telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL)), "42")

		err := n.Send(context.Background(), strings.Repeat("é", 5000))

		require.NoError(t, err)
		assert.Equal(t, telegram.MaxMessageLength, utf8.RuneCountInString(<-textCh))
	})
}

func TestClient_FindChatID(t *testing.T) {
	t.Parallel()

	t.Run("returns the chat of the latest message", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
			_, _ = w.Write([]byte(`{"ok":true,"result":[
				{"update_id":1,"message":{"chat":{"id":111}}},
				{"update_id":2,"message":{"chat":{"id":-100222}}},
				{"update_id":3,"edited_message":{"chat":{"id":333}}}
			]}`))
		}))
		defer srv.Close()

		id, err := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL)).FindChatID(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "-100222", id)
	})

	t.Run("returns empty when there are no messages", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		}))
		defer srv.Close()

		id, err := telegram.NewClient("TOKEN", telegram.WithBaseURL(srv.URL)).FindChatID(context.Background())

		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("unauthorized token is a notify error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		}))
		defer srv.Close()

		_, err := telegram.NewClient("BAD", telegram.WithBaseURL(srv.URL)).FindChatID(context.Background())

		assert.Equal(t, sitewatch.ENOTIFY, sitewatch.ErrorCode(err))
	})
}
