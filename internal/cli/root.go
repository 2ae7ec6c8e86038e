// Package cli implements the assistant command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashureev/teamhub/internal/config"
	"github.com/ashureev/teamhub/internal/history"
	"github.com/ashureev/teamhub/internal/store"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// options are the persistent flags shared by every command.
type options struct {
	backend   string
	dbPath    string
	redisAddr string
	user      string
	format    string
	verbose   bool
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Conversational assistant for the team hub",
		Long:          "Chat with the team hub assistant from a terminal and inspect its saved conversations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "History backend: sqlite, redis or memory (default: $HISTORY_BACKEND or sqlite)")
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "SQLite path (default: $DB_PATH or ./data/assistant.db)")
	root.PersistentFlags().StringVar(&opts.redisAddr, "redis-addr", "", "Redis address (default: $REDIS_ADDR)")
	root.PersistentFlags().StringVarP(&opts.user, "user", "u", defaultUser(), "Owner of the conversations")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text or json")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	root.AddCommand(
		newChatCmd(opts),
		newHistoryCmd(opts),
		newEventsCmd(opts),
	)
	return root
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli-" + u
	}
	return "cli"
}

// session is what a command needs to talk to the history store.
type session struct {
	cfg     *config.Config
	repo    store.Repository
	writer  *history.AsyncWriter
	history *history.Store
	logger  *slog.Logger
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// open loads the configuration, applies flag overrides and opens the store.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	if o.format != formatText && o.format != formatJSON {
		return nil, fmt.Errorf("unknown format %q (want text or json)", o.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.History.Backend = o.backend
	}
	if o.dbPath != "" {
		cfg.History.DBPath = o.dbPath
	}
	if o.redisAddr != "" {
		cfg.History.RedisAddr = o.redisAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := o.logger(cmd)
	repo, err := store.Open(cmd.Context(), store.Options{
		Backend: cfg.History.Backend,
		DBPath:  cfg.History.DBPath,
		Redis: store.RedisOptions{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.RedisPassword,
			DB:       cfg.History.RedisDB,
		},
	})
	if err != nil {
		return nil, err
	}

	writer := history.NewAsyncWriter(cfg.History.QueueSize, logger)
	hist := history.New(repo,
		history.WithWriter(writer),
		history.WithLogger(logger),
		history.WithLimits(history.Limits{
			Conversations: cfg.History.MaxConversations,
			Messages:      cfg.History.MaxMessages,
			Events:        cfg.History.MaxEvents,
		}),
	)
	return &session{cfg: cfg, repo: repo, writer: writer, history: hist, logger: logger}, nil
}

// Close drains pending writes and releases the store.
func (s *session) Close(ctx context.Context) error {
	if err := s.writer.Close(ctx); err != nil {
		_ = s.repo.Close()
		return fmt.Errorf("drain history writer: %w", err)
	}
	return s.repo.Close()
}

func (s *session) closeWith(cmd *cobra.Command, err *error) {
	if closeErr := s.Close(context.WithoutCancel(cmd.Context())); closeErr != nil && *err == nil {
		*err = closeErr
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
