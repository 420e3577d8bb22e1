package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sitewatch"
	"github.com/fwojciec/sitewatch/fs"
	"github.com/fwojciec/sitewatch/goquery"
	swhttp "github.com/fwojciec/sitewatch/http"
	"github.com/fwojciec/sitewatch/monitor"
	swslog "github.com/fwojciec/sitewatch/slog"
	"github.com/fwojciec/sitewatch/sqlite"
	"github.com/fwojciec/sitewatch/telegram"
	"github.com/fwojciec/sitewatch/yaml"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	SiteService     sitewatch.SiteService
	SnapshotStore   sitewatch.SnapshotStore
	ChangeService   sitewatch.ChangeService
	TelegramBaseURL string

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		TelegramBaseURL: telegram.DefaultBaseURL,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var firstErr error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.closers = nil
	return firstErr
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sitewatch"),
		kong.Description("Watch web pages and get notified when their content changes."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sitewatch --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	defer m.Close()

	logger, err := m.openLogger(cli.Globals, stderr)
	if err != nil {
		return err
	}
	deps.Logger = logger

	dataDir := cli.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %q: %w", dataDir, err)
	}

	location, err := m.openStore(cli.Globals, dataDir, stderr)
	if err != nil {
		return err
	}
	deps.Sites = m.SiteService
	deps.Snapshots = m.SnapshotStore
	deps.Changes = m.ChangeService

	if cli.TelegramToken != "" {
		deps.Telegram = telegram.NewClient(cli.TelegramToken, telegram.WithBaseURL(m.TelegramBaseURL))
	}
	if deps.Telegram != nil && cli.TelegramChatID != "" {
		deps.Notifier = swslog.NewLoggingNotifier(telegram.NewNotifier(deps.Telegram, cli.TelegramChatID), logger)
	} else {
		deps.Notifier = swslog.DiscardNotifier{}
	}

	fetcher := swhttp.NewFetcher()
	m.closers = append(m.closers, fetcher)
	deps.Checker = &monitor.Checker{
		Fetcher:   swslog.NewLoggingFetcher(fetcher, logger),
		Extractor: goquery.NewExtractor(),
		Snapshots: swslog.NewLoggingSnapshotStore(m.SnapshotStore, logger),
		Logger:    logger,
	}

	deps.Config = Config{
		Store:       cli.Store,
		Location:    location,
		DataDir:     dataDir,
		Interval:    cli.Interval,
		Concurrency: cli.Concurrency,
		HasToken:    cli.TelegramToken != "",
		HasChatID:   cli.TelegramChatID != "",
	}

	return kongCtx.Run(deps)
}

// openLogger builds the process logger. Logs go to stderr as text unless a
// log file is configured, in which case they are written as JSON to a
// size-rotated file.
func (m *Main) openLogger(g Globals, stderr io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", g.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	if g.LogFile == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), nil
	}

	if err := os.MkdirAll(filepath.Dir(g.LogFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   g.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		LocalTime:  true,
	}
	m.closers = append(m.closers, w)
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// openStore wires the storage services for the selected backend and returns
// a description of where data lives.
func (m *Main) openStore(g Globals, dataDir string, stderr io.Writer) (string, error) {
	switch g.Store {
	case "files":
		sitesPath := filepath.Join(dataDir, "sites.yaml")
		m.SiteService = yaml.NewSiteService(sitesPath)
		m.SnapshotStore = fs.NewSnapshotStore(filepath.Join(dataDir, "snapshots"))
		m.ChangeService = fs.NewChangeLog(filepath.Join(dataDir, "history"))
		return sitesPath, nil
	default:
		path := g.DB
		if path == "" {
			path = filepath.Join(dataDir, "sitewatch.db")
		}
		m.DB = sqlite.NewDB(path)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set SITEWATCH_DB to use a different database path\n")
			return "", fmt.Errorf("failed to open database at %q: %w", path, err)
		}
		m.closers = append(m.closers, m.DB)
		m.SiteService = sqlite.NewSiteService(m.DB)
		m.SnapshotStore = sqlite.NewSnapshotStore(m.DB)
		m.ChangeService = sqlite.NewChangeService(m.DB)
		return path, nil
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sitewatch"
	}
	return filepath.Join(home, ".sitewatch")
}

// truncateRunes shortens s to at most n runes, appending "..." when cut.
func truncateRunes(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
