package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new game and play as white",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SeatResult
			if err := client.Post(cmd.Context(), "/api/games", nil, &result); err != nil {
				return err
			}
			if err := secrets.Put(result.ID, Seat{Secret: result.Secret, Color: result.Color}); err != nil {
				return fmt.Errorf("game created but secret not saved: %w", err)
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent games, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/games"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}

			var result []Game
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of games (server default 50)")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <game-id>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			if err := client.Get(cmd.Context(), "/api/games/"+args[0], &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <game-id>",
		Short: "Join a waiting game as black",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID := args[0]

			var result SeatResult
			if err := client.Post(cmd.Context(), "/api/games/"+gameID+"/join", nil, &result); err != nil {
				return err
			}
			if err := secrets.Put(gameID, Seat{Secret: result.Secret, Color: result.Color}); err != nil {
				return fmt.Errorf("joined but secret not saved: %w", err)
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newMoveCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "move <game-id> <uci>",
		Short: "Submit a move in UCI notation (e.g. e2e4, e7e8q)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, move := args[0], args[1]

			s, err := resolveSecret(gameID, secret)
			if err != nil {
				return err
			}

			var result MoveResult
			body := map[string]string{"move": move, "secret": s}
			if err := client.Post(cmd.Context(), "/api/games/"+gameID+"/moves", body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Player secret (defaults to the saved one)")
	return cmd
}

func newResignCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "resign <game-id>",
		Short: "Resign an active game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID := args[0]

			s, err := resolveSecret(gameID, secret)
			if err != nil {
				return err
			}

			var result Game
			if err := client.Post(cmd.Context(), "/api/games/"+gameID+"/resign", map[string]string{"secret": s}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Player secret (defaults to the saved one)")
	return cmd
}

func newSeatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seats",
		Short: "List games with a saved secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)
			if cfg.Output == "json" {
				out.Print(secrets.Games)
				return nil
			}
			ids := secrets.GameIDs()
			if len(ids) == 0 {
				out.PrintMessage("No saved games")
				return nil
			}
			for _, id := range ids {
				fmt.Printf("%s  %s\n", id, secrets.Games[id].Color)
			}
			return nil
		},
	}
}
