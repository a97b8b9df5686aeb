package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// Document represents a document resource.
type Document struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	Filename     string `json:"filename"`
	FileType     string `json:"file_type"`
	ContentChars int    `json:"content_chars"`
	ChunkCount   int    `json:"chunk_count"`
	CreatedAt    string `json:"created_at"`
	DownloadURL  string `json:"download_url,omitempty"`
}

// DocumentList represents the documents list response.
type DocumentList struct {
	Items   []Document `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// DocumentCmd creates the document command group.
func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"documents", "doc"},
		Short:   "Manage ingested documents",
	}

	cmd.AddCommand(documentGetCmd())
	cmd.AddCommand(documentListCmd())
	cmd.AddCommand(documentDeleteCmd())

	return cmd
}

func documentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/documents/" + url.PathEscape(args[0]))
			if err != nil {
				return err
			}

			var doc Document
			if err := json.Unmarshal(resp.Data, &doc); err != nil {
				return fmt.Errorf("failed to parse document: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(doc, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("ID:         %s\n", doc.ID)
			fmt.Printf("Filename:   %s (%s)\n", doc.Filename, doc.FileType)
			fmt.Printf("Collection: %s\n", doc.CollectionID)
			fmt.Printf("Content:    %d chars in %d chunks\n", doc.ContentChars, doc.ChunkCount)
			fmt.Printf("Ingested:   %s\n", doc.CreatedAt)
			if doc.DownloadURL != "" {
				fmt.Printf("Download:   %s\n", doc.DownloadURL)
			}
			return nil
		},
	}
}

func documentListCmd() *cobra.Command {
	var (
		collection string
		cursor     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			if collection != "" {
				query.Set("collection", collection)
			}
			if cursor != "" {
				query.Set("cursor", cursor)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			path := "/documents"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			resp, err := api.Get(path)
			if err != nil {
				return err
			}

			var list DocumentList
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return fmt.Errorf("failed to parse documents: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(list.Items) == 0 {
				fmt.Println("No documents.")
				return nil
			}
			for _, doc := range list.Items {
				fmt.Printf("%s  %-30s %4d chunks  %s\n", doc.ID, doc.Filename, doc.ChunkCount, doc.CreatedAt)
			}
			if list.HasMore {
				fmt.Printf("\nMore available, continue with --cursor %s\n", list.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to list (default: documents)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	return cmd
}

func documentDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Delete document %s and its chunks? [y/N]: ", args[0])
				var answer string
				fmt.Scanln(&answer)
				if answer != "y" && answer != "Y" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete("/documents/" + url.PathEscape(args[0])); err != nil {
				return err
			}

			fmt.Printf("Deleted document %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}
