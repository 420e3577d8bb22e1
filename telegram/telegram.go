// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/sitewatch"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Ensure Notifier implements sitewatch.Notifier at compile time.
var _ sitewatch.Notifier = (*Notifier)(nil)

const (
	// DefaultBaseURL is the Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	// DefaultTimeout bounds each API request.
	DefaultTimeout = 30 * time.Second

	// MaxMessageLength is the longest text the Bot API accepts, in characters.
	MaxMessageLength = 4096
)

// Client calls the Telegram Bot API for one bot token.
// It is safe for concurrent use.
type Client struct {
	client  *http.Client
	token   string
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API endpoint. Used to point the client at a test server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a Client for the bot with the given token.
// No request is made until the first call.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: DefaultTimeout},
		token:   token,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// bot returns a Bot API handle whose requests are bound to ctx.
// It is built directly rather than with tgbotapi.NewBotAPI, which calls
// getMe before returning.
func (c *Client) bot(ctx context.Context) *tgbotapi.BotAPI {
	api := &tgbotapi.BotAPI{
		Token:  c.token,
		Client: contextClient{ctx: ctx, client: c.client},
		Buffer: 100,
	}
	api.SetAPIEndpoint(strings.TrimSuffix(c.baseURL, "/") + "/bot%s/%s")
	return api
}

// SendMessage posts text to chatID. chatID is a numeric chat ID or an
// @channel username. Text longer than MaxMessageLength is cut.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	text = truncate(text, MaxMessageLength)

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		return sitewatch.Errorf(sitewatch.ENOTIFY, "telegram: invalid chat ID %q", chatID)
	}

	if _, err := c.bot(ctx).Send(msg); err != nil {
		return c.wrap("sendMessage", err)
	}
	return nil
}

// FindChatID returns the chat of the most recent message sent to the bot,
// or "" if the bot has received no messages.
func (c *Client) FindChatID(ctx context.Context) (string, error) {
	updates, err := c.bot(ctx).GetUpdates(tgbotapi.NewUpdate(0))
	if err != nil {
		return "", c.wrap("getUpdates", err)
	}
	for i := len(updates) - 1; i >= 0; i-- {
		if msg := updates[i].Message; msg != nil && msg.Chat != nil {
			return strconv.FormatInt(msg.Chat.ID, 10), nil
		}
	}
	return "", nil
}

// wrap converts a Bot API failure to ENOTIFY. Transport errors quote the
// request URL, which embeds the token, so it is redacted.
func (c *Client) wrap(method string, err error) error {
	msg := err.Error()
	if c.token != "" {
		msg = strings.ReplaceAll(msg, c.token, "<token>")
	}
	return sitewatch.Errorf(sitewatch.ENOTIFY, "telegram %s: %s", method, msg)
}

// contextClient attaches ctx to every request, since the Bot API library
// builds requests without one.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Notifier sends notifications to a fixed chat.
type Notifier struct {
	Client *Client
	ChatID string
}

// NewNotifier creates a Notifier that sends to chatID.
func NewNotifier(client *Client, chatID string) *Notifier {
	return &Notifier{Client: client, ChatID: chatID}
}

// Send delivers text to the configured chat.
func (n *Notifier) Send(ctx context.Context, text string) error {
	return n.Client.SendMessage(ctx, n.ChatID, text)
}
