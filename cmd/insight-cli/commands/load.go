package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reviewloop/insight-engine/cmd/insight-cli/ui"
	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/vectorindex"
)

var loadVersion string

// reviewFile is one entry of the reviews JSON file.
type reviewFile struct {
	Text       string  `json:"text"`
	Rating     float64 `json:"rating"`
	Date       string  `json:"date,omitempty"`
	Competitor string  `json:"competitor,omitempty"`
}

// upsertChunkSize bounds memory per index call; the embedder applies its own
// smaller request batching underneath.
const upsertChunkSize = 20

var loadCmd = &cobra.Command{
	Use:   "load <product-id> <reviews.json>",
	Short: "Embed and index a reviews file for a product",
	Long: `Reads a JSON array of reviews, embeds the texts, and upserts them into
the product's vector index namespace. Reviews naming a competitor are tagged
with that competitor's id; the competitor must be registered on the product.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer engine.Close()

		tenant, err := tenantID(engine)
		if err != nil {
			return err
		}
		productID, err := parseProductID(args[0])
		if err != nil {
			return err
		}

		// Ownership check before writing anything.
		if _, err := engine.Repos.Products.GetByID(ctx, tenant, productID); err != nil {
			return fmt.Errorf("load product: %w", err)
		}

		competitors, err := engine.Repos.Competitors.ListByProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("list competitors: %w", err)
		}
		competitorIDs := make(map[string]uuid.UUID, len(competitors))
		for _, c := range competitors {
			competitorIDs[strings.ToLower(c.Name)] = c.ID
		}

		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read reviews file: %w", err)
		}
		var entries []reviewFile
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parse reviews file: %w", err)
		}
		if len(entries) == 0 {
			ui.Warning("reviews file is empty, nothing to do")
			return nil
		}

		reviews := make([]analysis.Review, 0, len(entries))
		skipped := 0
		for _, e := range entries {
			text := strings.TrimSpace(e.Text)
			if text == "" || e.Rating < 1 || e.Rating > 5 {
				skipped++
				continue
			}
			r := analysis.Review{
				ID:        uuid.New(),
				ProductID: productID,
				Text:      text,
				Rating:    e.Rating,
				WordCount: len(strings.Fields(text)),
				Version:   loadVersion,
			}
			if e.Date != "" {
				if parsed, err := parseReviewDate(e.Date); err == nil {
					r.Date = &parsed
				}
			}
			if e.Competitor != "" {
				id, ok := competitorIDs[strings.ToLower(e.Competitor)]
				if !ok {
					return fmt.Errorf("review names unknown competitor %q, register it first", e.Competitor)
				}
				r.CompetitorID = &id
			}
			reviews = append(reviews, r)
		}
		if skipped > 0 {
			ui.Warning("skipped %d reviews with empty text or out-of-range rating", skipped)
		}

		namespace := vectorindex.Namespace(tenant, productID)
		bar := ui.NewProgressBar(int64(len(reviews)), "indexing reviews")

		for start := 0; start < len(reviews); start += upsertChunkSize {
			end := start + upsertChunkSize
			if end > len(reviews) {
				end = len(reviews)
			}
			chunk := reviews[start:end]

			texts := make([]string, len(chunk))
			for i, r := range chunk {
				texts[i] = r.Text
			}
			vectors, err := engine.Embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed reviews: %w", err)
			}

			items := make([]vectorindex.Item, len(chunk))
			for i, r := range chunk {
				items[i] = vectorindex.Item{
					ID:       r.ID.String(),
					Values:   vectors[i],
					Metadata: vectorindex.ReviewMetadata(r),
				}
			}
			if err := engine.Index.Upsert(ctx, namespace, items); err != nil {
				return fmt.Errorf("upsert reviews: %w", err)
			}
			bar.Add(len(chunk))
		}
		bar.Finish()

		ui.Success("indexed %d reviews into %s", len(reviews), namespace)
		return nil
	},
}

func parseReviewDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func init() {
	loadCmd.Flags().StringVar(&loadVersion, "version", "", "ingestion version tag for these reviews")
}
