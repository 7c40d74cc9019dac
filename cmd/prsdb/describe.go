package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/cli"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/journeys/property"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/presentation/tui"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe the steps of the property registration journey",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := cli.DescribeProperty()
		if err != nil {
			return err
		}
		doc := tui.DescribeJourney(property.Name, steps)

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Fprint(cmd.OutOrStdout(), doc)
			return nil
		}
		render, err := tui.NewRenderer(os.Stdout)
		if err != nil {
			return err
		}
		out, err := render(doc)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("raw", false, "Print markdown without rendering")
}
