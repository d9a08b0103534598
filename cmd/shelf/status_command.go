package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and preflight checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:        %s\n", yesNo(status.Running))
			fmt.Fprintf(out, "PID:            %d\n", status.PID)
			fmt.Fprintf(out, "Cache root:     %s\n", status.CacheRoot)
			fmt.Fprintf(out, "Lock file:      %s\n", status.LockFilePath)
			if status.JournalPath != "" {
				fmt.Fprintf(out, "Journal:        %s\n", status.JournalPath)
			}
			fmt.Fprintf(out, "Active keys:    %d\n", status.ActiveKeys)

			if len(status.Checks) > 0 {
				rows := make([][]string, 0, len(status.Checks))
				for _, check := range status.Checks {
					state := "FAIL"
					if check.Passed {
						state = "OK"
					}
					rows = append(rows, []string{check.Name, state, check.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(out, []string{"Check", "State", "Detail"}, rows, nil))
			}

			if len(status.Dependencies) > 0 {
				rows := make([][]string, 0, len(status.Dependencies))
				for _, dep := range status.Dependencies {
					rows = append(rows, []string{dep.Name, dep.Command, yesNo(dep.Available), dep.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(out, []string{"Dependency", "Command", "Available", "Detail"}, rows, nil))
			}

			if len(status.Invocations) > 0 {
				states := make([]string, 0, len(status.Invocations))
				for state := range status.Invocations {
					states = append(states, state)
				}
				sort.Strings(states)
				rows := make([][]string, 0, len(states))
				for _, state := range states {
					rows = append(rows, []string{state, fmt.Sprintf("%d", status.Invocations[state])})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(out, []string{"Invocation State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}
}
