package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/sitewatch"
	"github.com/fwojciec/sitewatch/monitor"
	"github.com/fwojciec/sitewatch/telegram"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	Sites     sitewatch.SiteService
	Snapshots sitewatch.SnapshotStore
	Changes   sitewatch.ChangeService
	Notifier  sitewatch.Notifier
	Checker   *monitor.Checker
	Telegram  *telegram.Client // nil when no bot token is configured
	Config    Config
}

// Config is the resolved runtime configuration shown by "status".
type Config struct {
	Store       string
	Location    string
	DataDir     string
	Interval    time.Duration
	Concurrency int
	HasToken    bool
	HasChatID   bool
}

// Globals are flags shared by every command.
type Globals struct {
	Store          string        `enum:"sqlite,files" default:"sqlite" env:"SITEWATCH_STORE" help:"Storage backend (sqlite or files)"`
	DB             string        `name:"db" env:"SITEWATCH_DB" help:"SQLite database path (default: <data-dir>/sitewatch.db)"`
	DataDir        string        `env:"SITEWATCH_DATA_DIR" help:"Data directory (default: ~/.sitewatch)"`
	Interval       time.Duration `default:"180s" env:"SITEWATCH_INTERVAL" help:"Time between checks in run mode"`
	Concurrency    int           `short:"c" default:"4" env:"SITEWATCH_CONCURRENCY" help:"Sites checked in parallel"`
	TelegramToken  string        `env:"SITEWATCH_TELEGRAM_TOKEN" help:"Telegram bot token"`
	TelegramChatID string        `env:"SITEWATCH_TELEGRAM_CHAT_ID" help:"Telegram chat to notify"`
	LogFile        string        `env:"SITEWATCH_LOG_FILE" help:"Write JSON logs to a rotated file instead of stderr"`
	LogLevel       string        `enum:"debug,info,warn,error" default:"info" env:"SITEWATCH_LOG_LEVEL" help:"Minimum log level"`
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Globals

	Add           AddCmd           `cmd:"" help:"Add a site to watch"`
	Remove        RemoveCmd        `cmd:"" help:"Remove a site and its history"`
	List          ListCmd          `cmd:"" help:"List watched sites"`
	Enable        EnableCmd        `cmd:"" help:"Resume checking a site"`
	Disable       DisableCmd       `cmd:"" help:"Pause checking a site"`
	Check         CheckCmd         `cmd:"" help:"Check all sites once"`
	Run           RunCmd           `cmd:"" help:"Check all sites on an interval until interrupted"`
	History       HistoryCmd       `cmd:"" help:"Show detected changes"`
	Status        StatusCmd        `cmd:"" help:"Show configuration status"`
	TelegramSetup TelegramSetupCmd `cmd:"" name:"telegram-setup" help:"Find the Telegram chat ID for notifications"`
}

// AddCmd is the "add" subcommand.
type AddCmd struct {
	URL      string `arg:"" help:"URL of the page to watch"`
	Name     string `short:"n" help:"Display name (default: URL host)"`
	Selector string `short:"s" help:"CSS selector limiting which content is watched"`
}

// RemoveCmd is the "remove" subcommand.
type RemoveCmd struct {
	Site string `arg:"" help:"Site ID or URL"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct{}

// EnableCmd is the "enable" subcommand.
type EnableCmd struct {
	Site string `arg:"" help:"Site ID or URL"`
}

// DisableCmd is the "disable" subcommand.
type DisableCmd struct {
	Site string `arg:"" help:"Site ID or URL"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct{}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	QueueSize int `default:"100" help:"Buffered events before the oldest are dropped"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Site  string `arg:"" optional:"" help:"Site ID or URL (default: all sites)"`
	Limit int    `short:"l" default:"10" help:"Maximum changes to show"`
	Full  bool   `help:"Show the full diff of each change"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// TelegramSetupCmd is the "telegram-setup" subcommand.
type TelegramSetupCmd struct {
	EnvFile  string        `default:".env" help:"File to store SITEWATCH_TELEGRAM_CHAT_ID in"`
	Attempts int           `default:"30" help:"Polling attempts before giving up"`
	Wait     time.Duration `default:"1s" help:"Delay between polling attempts"`
}
