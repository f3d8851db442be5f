package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/syncclient"
	"github.com/gosuda/taskboard/internal/tui"
)

type boardOptions struct {
	server  string
	board   string
	token   string
	logFile string
}

func newBoardCmd() *cobra.Command {
	opts := boardOptions{}

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the shared board in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.server, "server", envOr("TASKBOARD_SERVER", "http://localhost:8080"), "server base URL")
	f.StringVar(&opts.board, "board", os.Getenv("TASKBOARD_BOARD_ID"), "board ID")
	f.StringVar(&opts.token, "token", os.Getenv("TASKBOARD_TOKEN"), "access token")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	return cmd
}

func runBoard(ctx context.Context, opts boardOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	boardID, err := uuid.Parse(opts.board)
	if err != nil {
		return fmt.Errorf("--board: %w", err)
	}
	if opts.token == "" {
		return errors.New("--token is required")
	}
	claims, err := auth.PeekClaims(opts.token)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fmt.Errorf("token user id: %w", err)
	}

	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	setupLogging(os.Getenv("TASKBOARD_LOG_LEVEL"), os.Getenv("TASKBOARD_LOG_FORMAT"), logOut)

	transport, err := syncclient.NewHTTPTransport(opts.server, opts.token)
	if err != nil {
		return err
	}
	defer transport.CloseIdleConnections()
	client := syncclient.New(transport, boardID)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, client, boardID, ownerID)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("board closed")
	return nil
}
