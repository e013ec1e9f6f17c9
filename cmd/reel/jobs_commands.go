package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/job"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Saved job registry operations",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved jobs, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			entries, err := svc.ListJobs()
			if err != nil {
				return writeFailure(cmd, err)
			}

			if jsonOut {
				type jsonEntry struct {
					Filename string `json:"filename"`
					ID       string `json:"id"`
					Status   string `json:"status"`
					Label    string `json:"label"`
				}
				items := make([]jsonEntry, 0, len(entries))
				for _, entry := range entries {
					items = append(items, jsonEntry{
						Filename: entry.Filename,
						ID:       entry.ID,
						Status:   entry.Status,
						Label:    entry.Label(),
					})
				}
				return writeJSON(cmd, map[string]any{"jobs": items})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No saved jobs")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Filename,
					entry.ID,
					colorizeStatus(job.Status(entry.Status), statusDisplay(entry.Status), colorize),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"File", "Video ID", "Status"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the job list as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print a saved job snapshot",
		Long: "Print a saved job snapshot as JSON.\n" +
			"Accepts a registry filename or a full \"<filename> | <id> | <status>\" label.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			record, err := svc.ShowJob(jobFilename(args[0]))
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, record)
		},
	}
}
