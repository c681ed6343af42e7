package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/moamoa/moa-engine/internal/cli"
	"github.com/moamoa/moa-engine/internal/model"
)

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage savings goals",
		Long:  `View and edit the shared savings goals that incoming transfers are credited to.`,
	}

	cmd.AddCommand(goalsListCmd())
	cmd.AddCommand(goalsAddCmd())

	return cmd
}

func goalsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List savings goals",
		RunE: func(c *cobra.Command, _ []string) error {
			groupID, _ := c.Flags().GetString("group")

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			goals, err := store.GetGoals(ctx, groupID)
			if err != nil {
				return fmt.Errorf("failed to load goals: %w", err)
			}

			if len(goals) == 0 {
				fmt.Println(cli.FormatInfo("No goals in this group"))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d goals", len(goals))))
			fmt.Println()
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-20s %14s %14s %-6s %s", "Name", "Saved", "Target", "Auto", "Status")))
			for _, g := range goals {
				auto := ""
				if g.AutoDeposit {
					auto = cli.CheckIcon
				}
				status := ""
				if g.Completed {
					status = cli.StyleSuccess("complete")
				}
				fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-20s %14s %14s %-6s %s",
					g.Name, cli.FormatWon(g.SavedAmount), cli.FormatWon(g.TargetAmount), auto, status)))
			}
			return nil
		},
	}

	cmd.Flags().String("group", "", "Household group id")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func goalsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			groupID, _ := c.Flags().GetString("group")
			account, _ := c.Flags().GetString("account")
			target, _ := c.Flags().GetInt64("target")
			autoDeposit, _ := c.Flags().GetBool("auto-deposit")

			if autoDeposit && account == "" {
				return fmt.Errorf("auto-deposit goals need a linked account")
			}

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			goal := &model.Goal{
				ID:            uuid.NewString(),
				GroupID:       groupID,
				Name:          args[0],
				AccountNumber: account,
				TargetAmount:  target,
				AutoDeposit:   autoDeposit,
			}
			if err := store.SaveGoal(ctx, goal); err != nil {
				return fmt.Errorf("failed to save goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added goal %s", goal.Name)))
			return nil
		},
	}

	cmd.Flags().String("group", "", "Household group id")
	cmd.Flags().String("account", "", "Linked account number")
	cmd.Flags().Int64("target", 0, "Target amount in won")
	cmd.Flags().Bool("auto-deposit", false, "Credit matching transfers automatically")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}
