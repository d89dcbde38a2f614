package cmd

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var uploadIngest bool

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a PDF, DOCX or CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		var doc struct {
			FileID   string `json:"fileId"`
			FileName string `json:"fileName"`
			Path     string `json:"path"`
		}
		if err := c.upload(cmd.Context(), args[0], &doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\nFile ID: %s\n", doc.FileName, doc.FileID)
		if !uploadIngest {
			fmt.Fprintf(cmd.OutOrStdout(), "To index it, run: aethena-cli ingest %s\n", doc.FileID)
			return nil
		}
		return ingestOne(cmd, c, doc.FileID)
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		var docs []struct {
			ID         string `json:"id"`
			FileName   string `json:"fileName"`
			UploadedAt string `json:"uploadedAt"`
		}
		if err := c.doJSON(cmd.Context(), http.MethodGet, "/api/v1/documents", nil, &docs); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tUPLOADED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.FileName, d.UploadedAt)
		}
		return tw.Flush()
	},
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadIngest, "ingest", false, "ingest the file right after uploading it")
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(documentsCmd)
}
