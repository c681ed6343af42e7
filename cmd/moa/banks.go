package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/cli"
)

func banksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List supported bank profiles",
		Long:  `List the bank and card profiles the parser recognizes, with their notification sources.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			registry, err := bank.NewDefaultRegistry()
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Supported banks"))
			fmt.Println()
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-16s %-20s %s", "ID", "Name", "Sources")))
			for _, profile := range registry.All() {
				fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-16s %-20s %s",
					profile.ID, profile.Name, strings.Join(profile.SourceIDs, ", "))))
			}
			return nil
		},
	}
}
