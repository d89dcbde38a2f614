package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	exportFormat  string
	exportOutFile string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent questions and answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		path := "/api/v1/history"
		if historyLimit > 0 {
			path += "?limit=" + strconv.Itoa(historyLimit)
		}
		var records []struct {
			ID        string `json:"id"`
			Question  string `json:"question"`
			CreatedAt string `json:"createdAt"`
		}
		if err := c.doJSON(cmd.Context(), http.MethodGet, path, nil, &records); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tASKED\tQUESTION")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.CreatedAt, r.Question)
		}
		return tw.Flush()
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [history-id]",
	Short: "Delete one history record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		if err := c.doJSON(cmd.Context(), http.MethodDelete, "/api/v1/history/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the history as csv, json or xlsx",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		name, err := c.download(cmd.Context(), "/api/v1/history/export?format="+url.QueryEscape(exportFormat), &buf)
		if err != nil {
			return err
		}
		target := exportOutFile
		if target == "" {
			target = name
		}
		if target == "" || target == "-" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum number of records (server caps at 50)")
	historyExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, json or xlsx")
	historyExportCmd.Flags().StringVarP(&exportOutFile, "output", "o", "", "output file, - for stdout (default: server file name)")
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
