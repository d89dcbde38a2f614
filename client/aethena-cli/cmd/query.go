package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

type answer struct {
	Answer  string `json:"answer"`
	Sources []struct {
		File string `json:"file"`
		Page *int   `json:"page"`
	} `json:"sources"`
}

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about your documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromFlags()
		if err != nil {
			return err
		}
		var ans answer
		question := strings.Join(args, " ")
		if err := c.doJSON(cmd.Context(), http.MethodPost, "/api/v1/query", map[string]string{"question": question}, &ans); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ans.Answer)
		if len(ans.Sources) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for _, s := range ans.Sources {
				if s.Page != nil {
					fmt.Fprintf(out, "  - %s (page %d)\n", s.File, *s.Page)
				} else {
					fmt.Fprintf(out, "  - %s\n", s.File)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
