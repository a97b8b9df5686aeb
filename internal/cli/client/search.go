package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query         string   `json:"query"`
	CollectionID  string   `json:"collection_id,omitempty"`
	FileType      string   `json:"file_type,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	VectorWeight  *float64 `json:"vector_weight,omitempty"`
	KeywordWeight *float64 `json:"keyword_weight,omitempty"`
	TextOnly      bool     `json:"text_only,omitempty"`
	LLMFormat     bool     `json:"llm_format,omitempty"`
}

// Citation ties a result back to its source document.
type Citation struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	FileType   string `json:"file_type"`
}

// SearchResult represents one ranked chunk.
type SearchResult struct {
	DocumentID    string   `json:"document_id"`
	ChunkIndex    int      `json:"chunk_index"`
	Text          string   `json:"text"`
	Score         float64  `json:"score"`
	SearchType    string   `json:"search_type"`
	Citation      Citation `json:"citation"`
	FormattedText string   `json:"formatted_text,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Query             string         `json:"query"`
	SearchType        string         `json:"search_type"`
	Results           []SearchResult `json:"results,omitempty"`
	TextContent       string         `json:"text_content,omitempty"`
	FormattedContent  string         `json:"formatted_content,omitempty"`
	TotalResults      int            `json:"total_results"`
	FormattingApplied bool           `json:"formatting_applied"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		collection    string
		documentID    string
		fileType      string
		limit         int
		vectorOnly    bool
		keywordOnly   bool
		vectorWeight  float64
		keywordWeight float64
		textOnly      bool
		llmFormat     bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested documents",
		Long:  "Searches stored chunks by blending vector similarity and keyword relevance.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if vectorOnly && keywordOnly {
				return fmt.Errorf("--vector and --keyword are mutually exclusive")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := SearchRequest{
				Query:     args[0],
				FileType:  fileType,
				Limit:     limit,
				TextOnly:  textOnly,
				LLMFormat: llmFormat,
			}
			if cmd.Flags().Changed("vector-weight") {
				req.VectorWeight = &vectorWeight
			}
			if cmd.Flags().Changed("keyword-weight") {
				req.KeywordWeight = &keywordWeight
			}

			if collection != "" {
				col, err := resolveCollection(api, collection)
				if err != nil {
					return err
				}
				req.CollectionID = col.ID
			}

			path := "/search"
			if vectorOnly {
				path = "/search/vector"
			} else if keywordOnly {
				path = "/search/keyword"
			}
			if documentID != "" {
				path = "/documents/" + url.PathEscape(documentID) + "/search"
			}

			resp, err := api.Post(path, req)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			var searchResp SearchResponse
			if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
				return fmt.Errorf("failed to parse search results: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(searchResp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			printSearchResponse(&searchResp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Restrict to a collection")
	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Restrict to a single document ID")
	cmd.Flags().StringVarP(&fileType, "file-type", "t", "", "Restrict to a file type (pdf, docx, ...)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&vectorOnly, "vector", false, "Vector ranking only")
	cmd.Flags().BoolVar(&keywordOnly, "keyword", false, "Keyword ranking only")
	cmd.Flags().Float64Var(&vectorWeight, "vector-weight", 0.7, "Weight of the vector branch")
	cmd.Flags().Float64Var(&keywordWeight, "keyword-weight", 0.3, "Weight of the keyword branch")
	cmd.Flags().BoolVar(&textOnly, "text-only", false, "Print concatenated text instead of per-result detail")
	cmd.Flags().BoolVar(&llmFormat, "llm", false, "Format results through the LLM")

	return cmd
}

func printSearchResponse(resp *SearchResponse) {
	if resp.TotalResults == 0 {
		fmt.Println("No results found.")
		return
	}

	if resp.FormattedContent != "" {
		fmt.Println(resp.FormattedContent)
		return
	}
	if resp.TextContent != "" {
		fmt.Println(resp.TextContent)
		return
	}

	fmt.Printf("Found %d results:\n\n", resp.TotalResults)
	for i, result := range resp.Results {
		fmt.Printf("%d. %s (%.3f)\n", i+1, result.Citation.Filename, result.Score)

		text := result.Text
		if result.FormattedText != "" {
			text = result.FormattedText
		}
		text = strings.TrimSpace(text)
		if len(text) > 200 {
			text = text[:197] + "..."
		}
		fmt.Printf("   %s\n", text)

		fmt.Printf("   Document: %s, chunk %d", result.DocumentID, result.ChunkIndex)
		if result.Citation.PageNumber > 0 {
			fmt.Printf(", page %d", result.Citation.PageNumber)
		}
		fmt.Println()
		if i < len(resp.Results)-1 {
			fmt.Println()
		}
	}
}
