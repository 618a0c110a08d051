package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <rating>...",
		Short: "Show the rank band for ratings",
		Long:  `Show the rank name, color and CSS class for each rating. Runs locally.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := make(ClassificationList, 0, len(args))
			for _, arg := range args {
				r, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid rating %q", arg)
				}
				list = append(list, NewClassification(r))
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(list)
			return nil
		},
	}
}
