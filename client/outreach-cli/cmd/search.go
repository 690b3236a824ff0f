package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchTopK     int
	searchCategory string
	searchMinScore float32
	asContext      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]interface{}{
			"query":    strings.Join(args, " "),
			"topK":     searchTopK,
			"category": searchCategory,
		}
		// Only send minScore when set so the server default applies otherwise.
		if cmd.Flags().Changed("min-score") {
			payload["minScore"] = searchMinScore
		}

		path := "/api/v1/search"
		if asContext {
			path = "/api/v1/context"
		}
		c := newAPIClient(serverURL, token, timeout)
		data, err := c.postJSON(path, payload)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts and vector index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL, token, timeout)
		data, err := c.getJSON("/api/v1/stats")
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "maximum number of results")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict to one category")
	searchCmd.Flags().Float32Var(&searchMinScore, "min-score", 0.7, "minimum similarity score")
	searchCmd.Flags().BoolVar(&asContext, "context", false, "return a numbered context block instead of raw results")

	rootCmd.AddCommand(searchCmd, statsCmd)
}
