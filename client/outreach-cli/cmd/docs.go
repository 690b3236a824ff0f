package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	uploadCategory   string
	uploadUploadedBy string
	uploadAsync      bool
	listCategory     string
	listStatus       string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage knowledge documents",
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a PDF, XLSX, HTML or text file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL, token, timeout)
		data, err := c.upload(args[0], map[string]string{
			"category":   uploadCategory,
			"uploadedBy": uploadUploadedBy,
		}, uploadAsync)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL, token, timeout)
		data, err := c.getJSON("/api/v1/documents" + query(map[string]string{
			"category": listCategory,
			"status":   listStatus,
		}))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var docsGetCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Show a document and its ingestion errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL, token, timeout)
		data, err := c.getJSON("/api/v1/documents/" + url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL, token, timeout)
		if err := c.delete("/api/v1/documents/" + url.PathEscape(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var jobCmd = &cobra.Command{
	Use:   "job [job-id]",
	Short: "Show the status of an asynchronous upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL, token, timeout)
		data, err := c.getJSON("/api/v1/jobs/" + url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	docsUploadCmd.Flags().StringVar(&uploadCategory, "category", "", "category label (classified from the text when empty)")
	docsUploadCmd.Flags().StringVar(&uploadUploadedBy, "uploaded-by", "", "uploader recorded on the document")
	docsUploadCmd.Flags().BoolVar(&uploadAsync, "async", false, "queue the upload for background ingestion")

	docsListCmd.Flags().StringVar(&listCategory, "category", "", "filter by category")
	docsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (processing, ready, failed)")

	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsUploadCmd, docsListCmd, docsGetCmd, docsDeleteCmd, jobCmd)
}
