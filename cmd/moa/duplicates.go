package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moamoa/moa-engine/internal/cli"
	"github.com/moamoa/moa-engine/internal/model"
)

func duplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Manage duplicate transaction cases",
		Long:  `List and resolve transaction pairs flagged as potential duplicates.`,
	}

	cmd.AddCommand(duplicatesListCmd())
	cmd.AddCommand(duplicatesResolveCmd())
	cmd.AddCommand(duplicatesPreferCmd())

	return cmd
}

func duplicatesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open duplicate cases",
		RunE: func(c *cobra.Command, _ []string) error {
			groupID, _ := c.Flags().GetString("group")

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cases, err := store.GetOpenCases(ctx, groupID)
			if err != nil {
				return fmt.Errorf("failed to load open cases: %w", err)
			}

			if len(cases) == 0 {
				fmt.Println(cli.FormatSuccess("No open duplicate cases"))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d open cases", len(cases))))
			fmt.Println()
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-38s %-12s %-12s %12s", "Case", "First", "Second", "Amount")))
			for _, pc := range cases {
				fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-38s %-12s %-12s %12s",
					pc.ID, pc.FirstBank, pc.SecondBank, cli.FormatWon(pc.Amount))))
			}
			return nil
		},
	}

	cmd.Flags().String("group", "", "Household group id")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func duplicatesResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Interactively resolve open duplicate cases",
		Long: `Walk through each open duplicate case and choose what to keep.

A choice can optionally be saved as a standing rule for the bank pair,
after which matching pairs resolve without prompting.`,
		RunE: runDuplicatesResolve,
	}

	cmd.Flags().String("group", "", "Household group id")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runDuplicatesResolve(cmd *cobra.Command, _ []string) error {
	groupID, _ := cmd.Flags().GetString("group")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	detector, err := initDetector(store)
	if err != nil {
		return err
	}

	cases, err := store.GetOpenCases(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load open cases: %w", err)
	}
	if len(cases) == 0 {
		fmt.Println(cli.FormatSuccess("No open duplicate cases"))
		return nil
	}

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx = handler.HandleInterrupts(ctx, true)

	prompter := cli.NewCLIPrompter(os.Stdin, os.Stdout)
	prompter.SetTotalCases(len(cases))

	for _, pc := range cases {
		decision, err := prompter.ResolveCase(ctx, pc)
		if err != nil {
			if handler.WasInterrupted() {
				break
			}
			return err
		}
		if decision.Skipped {
			continue
		}

		if _, err := detector.Resolve(ctx, pc.ID, decision.Resolution, decision.ApplyToFuture); err != nil {
			return fmt.Errorf("failed to resolve case %s: %w", pc.ID, err)
		}
	}

	prompter.ShowCompletion()
	return nil
}

func duplicatesPreferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefer <ask|prefer-card|prefer-bank>",
		Short: "Set the global duplicate preference",
		Long: `Set a user-level default for card/bank duplicate pairs.

With prefer-card or prefer-bank set, mixed pairs resolve automatically in
favor of that channel and same-channel pairs keep the earlier event. With
ask (the default) each new pair opens a case for review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			userID, _ := c.Flags().GetString("user")

			pref := model.DuplicatePreference(args[0])
			switch pref {
			case model.PreferenceAsk, model.PreferenceCard, model.PreferenceBank:
			default:
				return fmt.Errorf("invalid preference %q", args[0])
			}

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetDuplicatePreference(ctx, userID, pref); err != nil {
				return fmt.Errorf("failed to set preference: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Duplicate preference set to %s", pref)))
			return nil
		},
	}

	cmd.Flags().String("user", "", "User id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
