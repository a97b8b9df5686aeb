package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestResult represents the ingest API response.
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	CollectionID  string `json:"collection_id"`
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	ChunkCount    int    `json:"chunk_count"`
	EmbeddedCount int    `json:"embedded_count"`
	Degraded      bool   `json:"degraded"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents",
		Long:  "Uploads files, extracts their text and indexes them for search.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			for _, filePath := range args {
				resp, err := api.UploadFile("/ingest", filePath, collection)
				if err != nil {
					return fmt.Errorf("failed to ingest %s: %w", filePath, err)
				}

				var result IngestResult
				if err := json.Unmarshal(resp.Data, &result); err != nil {
					return fmt.Errorf("failed to parse ingest result: %w", err)
				}

				fmt.Printf("Ingested %s: %d chunks (%d embedded), document %s\n",
					result.Filename, result.ChunkCount, result.EmbeddedCount, result.DocumentID)
				if result.Degraded {
					fmt.Println("  note: embeddings incomplete, backfill will finish them")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Target collection (default: documents)")
	return cmd
}
