package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moamoa/moa-engine/internal/cli"
	"github.com/moamoa/moa-engine/internal/learn"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage learned extraction patterns",
		Long:  `View and teach the patterns used to extract senders from notifications the parser could not handle.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsLearnCmd())
	cmd.AddCommand(patternsDeactivateCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active patterns for a goal",
		RunE: func(c *cobra.Command, _ []string) error {
			goalID, _ := c.Flags().GetString("goal")

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			patterns, err := store.GetActivePatterns(ctx, goalID)
			if err != nil {
				return fmt.Errorf("failed to load patterns: %w", err)
			}

			if len(patterns) == 0 {
				fmt.Println(cli.FormatInfo("No active patterns for this goal"))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d active patterns", len(patterns))))
			fmt.Println()
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-6s %-12s %-32s %8s %8s", "ID", "Bank", "Sender pattern", "Hits", "Misses")))
			for _, p := range patterns {
				fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-6d %-12s %-32s %8d %8d",
					p.ID, p.BankName, p.SenderPattern, p.SuccessCount, p.FailCount)))
			}
			return nil
		},
	}

	cmd.Flags().String("goal", "", "Goal id")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func patternsLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn a pattern from a manual correction",
		Long: `Derive a new extraction pattern from a notification the system could not
handle, given the sender name the user confirmed for it.`,
		RunE: func(c *cobra.Command, _ []string) error {
			goalID, _ := c.Flags().GetString("goal")
			text, _ := c.Flags().GetString("text")
			sender, _ := c.Flags().GetString("sender")
			bankName, _ := c.Flags().GetString("bank")
			amount, _ := c.Flags().GetInt64("amount")

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := learn.NewLearner(store)
			pattern, err := learner.Learn(ctx, learn.Correction{
				GoalID:     goalID,
				RawText:    text,
				SenderName: sender,
				BankName:   bankName,
				Amount:     amount,
			})
			if err != nil {
				return fmt.Errorf("failed to learn pattern: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Learned pattern %d", pattern.ID)))
			fmt.Printf("  sender:  %s\n", pattern.SenderPattern)
			if pattern.AmountPattern != "" {
				fmt.Printf("  amount:  %s\n", pattern.AmountPattern)
			}
			if pattern.AccountPattern != "" {
				fmt.Printf("  account: %s\n", pattern.AccountPattern)
			}
			return nil
		},
	}

	cmd.Flags().String("goal", "", "Goal id")
	cmd.Flags().String("text", "", "Raw notification text")
	cmd.Flags().String("sender", "", "Confirmed sender name")
	cmd.Flags().String("bank", "", "Bank name")
	cmd.Flags().Int64("amount", 0, "Confirmed amount in won")
	_ = cmd.MarkFlagRequired("goal")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func patternsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <pattern-id>",
		Short: "Deactivate a learned pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid pattern id %q", args[0])
			}

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeactivatePattern(ctx, id); err != nil {
				return fmt.Errorf("failed to deactivate pattern: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Pattern %d deactivated", id)))
			return nil
		},
	}
}
