package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/orchestrator"
)

func newChatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println("reelsmith: what would you like to create? (\"exit\" to quit)")

			scanner := bufio.NewScanner(os.Stdin)
			var sessionID string
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				resp, err := a.orch.HandleTurn(ctx, orchestrator.TurnRequest{
					SessionID: sessionID,
					UserID:    userID,
					Message:   line,
				})
				if err != nil {
					return err
				}
				sessionID = resp.SessionID

				fmt.Printf("\nreelsmith: %s\n", resp.Reply)
				if resp.Estimate != nil {
					fmt.Printf("  [%s | %d credits | approval needed: %v]\n",
						resp.Phase, resp.Estimate.Credits, resp.NeedsApproval)
				} else {
					fmt.Printf("  [%s]\n", resp.Phase)
				}
				fmt.Println()

				if ctx.Err() != nil {
					break
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user id to attribute the session to")
	return cmd
}
