package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// Collection represents a collection resource.
type Collection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// CollectionList represents the collections list response.
type CollectionList struct {
	Items []Collection `json:"items"`
}

// CollectionStats represents the collection stats response.
type CollectionStats struct {
	CollectionID  string `json:"collection_id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
	EmbeddedCount int    `json:"embedded_count"`
}

func resolveCollection(api *APIClient, name string) (*Collection, error) {
	resp, err := api.Get("/collections/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %q: %w", name, err)
	}
	var col Collection
	if err := json.Unmarshal(resp.Data, &col); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}
	return &col, nil
}

// CollectionCmd creates the collection command group.
func CollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "Manage collections",
	}

	cmd.AddCommand(collectionListCmd())
	cmd.AddCommand(collectionCreateCmd())
	cmd.AddCommand(collectionStatsCmd())
	cmd.AddCommand(collectionDeleteCmd())

	return cmd
}

func collectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/collections")
			if err != nil {
				return err
			}

			var list CollectionList
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return fmt.Errorf("failed to parse collections: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(list.Items) == 0 {
				fmt.Println("No collections.")
				return nil
			}
			for _, col := range list.Items {
				fmt.Printf("%s  %s\n", col.ID, col.Name)
			}
			return nil
		},
	}
}

func collectionCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/collections", map[string]string{"name": args[0]})
			if err != nil {
				return err
			}

			var col Collection
			if err := json.Unmarshal(resp.Data, &col); err != nil {
				return fmt.Errorf("failed to parse collection: %w", err)
			}

			fmt.Printf("Created collection '%s' (id: %s)\n", col.Name, col.ID)
			return nil
		},
	}
}

func collectionStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <name>",
		Short: "Show collection statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/collections/" + url.PathEscape(args[0]) + "/stats")
			if err != nil {
				return err
			}

			var stats CollectionStats
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse stats: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(stats, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Collection: %s\n", stats.Name)
			fmt.Printf("Documents:  %d\n", stats.DocumentCount)
			fmt.Printf("Chunks:     %d (%d embedded)\n", stats.ChunkCount, stats.EmbeddedCount)
			return nil
		},
	}
}

func collectionDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection and all its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Delete collection '%s' and all its documents? [y/N]: ", args[0])
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

			if _, err := api.Delete("/collections/" + url.PathEscape(args[0])); err != nil {
				return err
			}

			fmt.Printf("Deleted collection '%s'\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}
