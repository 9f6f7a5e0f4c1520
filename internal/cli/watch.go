package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mcoot/chessgame-go/internal/model"
)

const (
	baseReconnectDelay = time.Second
	maxReconnectDelay  = 10 * time.Second
)

func newWatchCmd() *cobra.Command {
	var (
		maxRetries int
		untilOver  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <game-id>",
		Short: "Stream live events for a game",
		Long: `Connect to the game's websocket and print events as they happen.

The first event is always a snapshot of the current game. Events include:
  - game_state: Snapshot sent on connect
  - move_made: A move was accepted
  - player_joined: Black joined the game
  - game_over: The game ended
  - error: A command from some viewer was rejected

Dropped connections are retried with exponential backoff (1s doubling to 10s).
Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			w := &watcher{
				url:        client.WebsocketURL(args[0]),
				out:        NewOutput(cfg.Output),
				maxRetries: maxRetries,
				untilOver:  untilOver,
				verbose:    cfg.Verbose,
			}
			return w.run(ctx)
		},
	}

	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Give up after this many failed reconnects (0 retries forever)")
	cmd.Flags().BoolVar(&untilOver, "until-over", false, "Exit once the game is over")

	return cmd
}

// reconnectDelay returns the wait before retry number attempt (from zero)
func reconnectDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := baseReconnectDelay
	for i := 0; i < attempt && delay < maxReconnectDelay; i++ {
		delay *= 2
	}
	return min(delay, maxReconnectDelay)
}

// errGameOver ends a watch started with --until-over
var errGameOver = errors.New("game over")

type watcher struct {
	url        string
	out        *Output
	maxRetries int
	untilOver  bool
	verbose    bool
	wait       func(ctx context.Context, d time.Duration) bool
}

func (w *watcher) run(ctx context.Context) error {
	wait := w.wait
	if wait == nil {
		wait = sleep
	}

	attempt := 0
	for {
		connected, err := w.session(ctx)
		if ctx.Err() != nil || errors.Is(err, errGameOver) {
			return nil
		}
		if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
			return fmt.Errorf("server refused connection: %w", err)
		}
		if connected {
			attempt = 0
		}
		if w.maxRetries > 0 && attempt >= w.maxRetries {
			return fmt.Errorf("giving up after %d retries: %w", attempt, err)
		}

		delay := reconnectDelay(attempt)
		attempt++
		if w.verbose {
			fmt.Fprintf(os.Stderr, "connection lost (%v), retrying in %s\n", err, delay)
		}
		if !wait(ctx, delay) {
			return nil
		}
	}
}

// session reads events from one connection until it fails.
// connected reports whether the dial succeeded.
func (w *watcher) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := websocket.Dial(ctx, w.url, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return true, err
		}

		evt, err := model.DecodeEvent(raw)
		if err != nil {
			continue
		}
		w.out.PrintEvent(evt)

		if w.untilOver && isOver(evt) {
			return true, errGameOver
		}
	}
}

func isOver(evt model.Event) bool {
	switch e := evt.(type) {
	case model.GameOverEvent:
		return true
	case model.GameStateEvent:
		return e.Status.IsTerminal()
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
