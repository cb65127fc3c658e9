package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/repokeeper/repokeeper/domain/operation"
	v1 "github.com/repokeeper/repokeeper/infrastructure/api/v1"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func operationsCmd(envFile *string) *cobra.Command {
	var (
		limit  int
		failed bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List persisted operation logs, newest last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := a.journal.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			if failed {
				snaps = lo.Filter(snaps, func(s operation.Snapshot, _ int) bool { return hasErrors(s) })
			}
			sort.SliceStable(snaps, func(i, j int) bool {
				if snaps[i].StartTime != snaps[j].StartTime {
					return snaps[i].StartTime < snaps[j].StartTime
				}
				return snaps[i].Code < snaps[j].Code
			})
			if limit > 0 && len(snaps) > limit {
				snaps = snaps[len(snaps)-limit:]
			}
			return render(cmd.OutOrStdout(), output, v1.OperationsToDTO(snaps).Data, func() {
				printOperations(cmd.OutOrStdout(), snaps)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Show at most this many operations, 0 for all")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only show operations with error steps")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json, yaml")

	return cmd
}

func hasErrors(s operation.Snapshot) bool {
	return lo.ContainsBy(s.Steps, func(step operation.StepSnapshot) bool {
		return step.Status == operation.StatusError || step.Status == operation.StatusDanger
	})
}

func printOperations(w io.Writer, snaps []operation.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "no operations recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSTARTED\tOPERATION\tMESSAGE\tSTEPS\tRESULT")
	for _, s := range snaps {
		result := green("ok")
		switch {
		case s.Running:
			result = yellow("running")
		case hasErrors(s):
			result = red("errors")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			s.Code, s.StartTime, s.Operation, s.Message, s.Finished, s.Total, result)
	}
	_ = tw.Flush()
}
