package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// healthPollInterval spaces attempts while waiting for the server
const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check that the server is up and report which storage backend it uses.

With --wait, keep trying until the server answers or the duration passes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := checkHealth(cmd.Context(), client, wait)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long (e.g. 10s)")

	return cmd
}

// checkHealth queries the health endpoint, retrying until wait has elapsed
func checkHealth(ctx context.Context, c *Client, wait time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)
	for {
		var result HealthResult
		err := c.Get(ctx, "/api/health", &result)
		if err == nil {
			return result, nil
		}
		if !time.Now().Add(healthPollInterval).Before(deadline) {
			return HealthResult{}, fmt.Errorf("server not healthy: %w", err)
		}
		if !sleep(ctx, healthPollInterval) {
			return HealthResult{}, ctx.Err()
		}
	}
}
