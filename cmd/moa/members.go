package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/moamoa/moa-engine/internal/cli"
	"github.com/moamoa/moa-engine/internal/model"
)

func membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage household members",
		Long:  `View and edit the household members that sender names are matched against.`,
	}

	cmd.AddCommand(membersListCmd())
	cmd.AddCommand(membersAddCmd())

	return cmd
}

func membersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List household members",
		RunE: func(c *cobra.Command, _ []string) error {
			groupID, _ := c.Flags().GetString("group")

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			members, err := store.GetMembers(ctx, groupID)
			if err != nil {
				return fmt.Errorf("failed to load members: %w", err)
			}

			if len(members) == 0 {
				fmt.Println(cli.FormatInfo("No members in this group"))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d members", len(members))))
			fmt.Println()
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-12s %-12s %s", "Name", "Real name", "Aliases")))
			for _, m := range members {
				fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-12s %-12s %s",
					m.Name, m.RealName, strings.Join(m.Aliases, ", "))))
			}
			return nil
		},
	}

	cmd.Flags().String("group", "", "Household group id")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func membersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a household member",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			groupID, _ := c.Flags().GetString("group")
			realName, _ := c.Flags().GetString("real-name")
			aliases, _ := c.Flags().GetStringSlice("alias")

			ctx := c.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			member := &model.Member{
				ID:       uuid.NewString(),
				GroupID:  groupID,
				Name:     args[0],
				RealName: realName,
				Aliases:  aliases,
			}
			if err := store.SaveMember(ctx, member); err != nil {
				return fmt.Errorf("failed to save member: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added member %s", member.Name)))
			return nil
		},
	}

	cmd.Flags().String("group", "", "Household group id")
	cmd.Flags().String("real-name", "", "Legal name, if different from the display name")
	cmd.Flags().StringSlice("alias", nil, "Additional names this member sends money under")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}
