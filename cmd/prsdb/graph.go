package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/cli"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the journey graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the property registration journey, grouping steps by task.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := cli.DescribeProperty()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(steps, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
