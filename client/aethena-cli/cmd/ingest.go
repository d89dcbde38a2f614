package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var ingestAsync bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file-id]...",
	Short: "Index uploaded files so they can be queried",
	Long: `Index one or more uploaded files. A single file is ingested synchronously;
several files are ingested as a batch and a per-file report is printed.
With --async the files are queued and job IDs are printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		switch {
		case ingestAsync:
			var out struct {
				Jobs []struct {
					JobID  string `json:"jobId"`
					FileID string `json:"fileId"`
					Status string `json:"status"`
				} `json:"jobs"`
			}
			if err := c.doJSON(cmd.Context(), http.MethodPost, "/api/v1/ingest/async", map[string][]string{"fileIds": args}, &out); err != nil {
				return err
			}
			for _, j := range out.Jobs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", j.JobID, j.FileID, j.Status)
			}
			return nil
		case len(args) == 1:
			return ingestOne(cmd, c, args[0])
		default:
			var report map[string]interface{}
			if err := c.doJSON(cmd.Context(), http.MethodPost, "/api/v1/ingest/batch", map[string][]string{"fileIds": args}, &report); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		}
	},
}

var jobCmd = &cobra.Command{
	Use:   "job [job-id]",
	Short: "Show the status of an async ingestion job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		var job map[string]interface{}
		if err := c.doJSON(cmd.Context(), http.MethodGet, "/api/v1/jobs/"+url.PathEscape(args[0]), nil, &job); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

func ingestOne(cmd *cobra.Command, c *apiClient, fileID string) error {
	var res struct {
		Status       string `json:"status"`
		UnitsIndexed int    `json:"unitsIndexed"`
	}
	if err := c.doJSON(cmd.Context(), http.MethodPost, "/api/v1/ingest", map[string]string{"fileId": fileID}, &res); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "File %s %s, %d units indexed\n", fileID, res.Status, res.UnitsIndexed)
	return nil
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "queue the files and return job IDs")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(jobCmd)
}
