package selector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/analysis"
	"github.com/reviewloop/insight-engine/internal/cache"
	"github.com/reviewloop/insight-engine/internal/config"
	"github.com/reviewloop/insight-engine/internal/embedding"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/vectorindex"
)

const (
	defaultMaxPoolSize = 500
	ratingBuckets      = 5
	topicCacheTTL      = 24 * time.Hour
)

// Request describes one selection.
type Request struct {
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	AnalysisType analysis.Type

	// TargetCount is the number of reviews to return. Zero falls back to the
	// analysis type's default.
	TargetCount int

	// CompetitorID restricts selection to one competitor's reviews. When nil
	// the pool contains only the product's own reviews, unless
	// IncludeCompetitors is set.
	CompetitorID       *uuid.UUID
	IncludeCompetitors bool

	// VersionFilter restricts the pool to reviews tagged with that ingestion
	// version. Empty means all versions.
	VersionFilter string

	// ProductName, when set, prefixes the topic query so the semantic factor
	// anchors on this product rather than the category in general.
	ProductName string
}

// Selector picks a relevant, diverse, budget-bounded review sample for an
// analysis run.
type Selector struct {
	index    vectorindex.Index
	embedder embedding.Embedder
	cache    cache.Client
	profiles Profiles
	logger   *observability.Logger

	maxPoolSize int
	cacheTopics bool

	// now is swapped in tests for deterministic recency scoring.
	now func() time.Time
}

// New builds a selector. The cache client is optional; pass nil to disable
// topic query caching.
func New(index vectorindex.Index, embedder embedding.Embedder, cacheClient cache.Client, profiles Profiles, cfg config.SelectorConfig, logger *observability.Logger) *Selector {
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = defaultMaxPoolSize
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Selector{
		index:       index,
		embedder:    embedder,
		cache:       cacheClient,
		profiles:    profiles,
		logger:      logger,
		maxPoolSize: maxPool,
		cacheTopics: cfg.CacheTopicQueries && cacheClient != nil,
		now:         time.Now,
	}
}

// Select runs the three stages: stratified pool fetch, weighted scoring, and
// balanced final pick. The result is at most TargetCount reviews, ordered by
// descending score. An empty pool yields an empty result, not an error; only
// transport failures propagate.
func (s *Selector) Select(ctx context.Context, req Request) ([]analysis.Review, error) {
	target := req.TargetCount
	if target <= 0 {
		target = analysis.ReviewCount(req.AnalysisType)
	}

	pool, err := s.fetchPool(ctx, req, target)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		s.logger.Info().
			Str("analysis_type", string(req.AnalysisType)).
			Str("product_id", req.ProductID.String()).
			Msg("review pool is empty")
		return nil, nil
	}

	scored, err := s.scorePool(ctx, req, pool)
	if err != nil {
		return nil, err
	}

	selected := balancedSelect(scored, target)

	s.logger.Info().
		Str("analysis_type", string(req.AnalysisType)).
		Str("product_id", req.ProductID.String()).
		Int("pool_size", len(pool)).
		Int("selected", len(selected)).
		Msg("review selection complete")

	return selected, nil
}

// fetchPool queries the five rating buckets in parallel with a zero vector,
// so the index returns reviews by metadata alone without ranking them
// against a query.
func (s *Selector) fetchPool(ctx context.Context, req Request, target int) ([]analysis.Review, error) {
	poolSize := 3 * target
	if poolSize > s.maxPoolSize {
		poolSize = s.maxPoolSize
	}
	perBucket := poolSize / ratingBuckets
	if perBucket < 1 {
		perBucket = 1
	}

	namespace := vectorindex.Namespace(req.TenantID, req.ProductID)
	zero := vectorindex.ZeroVector(s.embedder.Dimension())

	var (
		wg      sync.WaitGroup
		results = make([][]vectorindex.Match, ratingBuckets)
		errs    = make([]error, ratingBuckets)
	)
	for bucket := 1; bucket <= ratingBuckets; bucket++ {
		wg.Add(1)
		go func(bucket int) {
			defer wg.Done()
			filter := s.bucketFilter(req, bucket)
			matches, err := s.index.Query(ctx, namespace, vectorindex.QueryRequest{
				Vector: zero,
				TopK:   perBucket,
				Filter: filter,
			})
			if err != nil {
				errs[bucket-1] = fmt.Errorf("bucket %d: %w", bucket, err)
				return
			}
			results[bucket-1] = matches
		}(bucket)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fetch review pool: %w", err)
		}
	}

	seen := make(map[string]struct{})
	var pool []analysis.Review
	for _, matches := range results {
		for _, m := range matches {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			review, err := vectorindex.ReviewFromMatch(m)
			if err != nil {
				s.logger.Warn().Err(err).Str("vector_id", m.ID).Msg("skipping malformed review metadata")
				continue
			}
			pool = append(pool, review)
		}
	}
	return pool, nil
}

// bucketFilter builds the metadata filter for one rating bucket. Bucket n
// covers ratings [n-0.5, n+0.5), clipped so every rating in [0.5, 5.5) lands
// in exactly one bucket.
func (s *Selector) bucketFilter(req Request, bucket int) vectorindex.Filter {
	filter := vectorindex.Filter{
		vectorindex.FieldProductID: req.ProductID.String(),
		vectorindex.FieldRating:    vectorindex.Range(float64(bucket)-0.5, float64(bucket)+0.5),
	}
	switch {
	case req.CompetitorID != nil:
		filter[vectorindex.FieldCompetitorID] = req.CompetitorID.String()
	case !req.IncludeCompetitors:
		filter[vectorindex.FieldCompetitorID] = vectorindex.Exists(false)
	}
	if req.VersionFilter != "" {
		filter[vectorindex.FieldVersion] = req.VersionFilter
	}
	return filter
}

// scoredReview pairs a pool review with its weighted score.
type scoredReview struct {
	review analysis.Review
	score  float64
}

// scorePool embeds the pool texts, compares them against the analysis type's
// topic query, and computes the weighted score for every review. The result
// is sorted by descending score, with the review ID as a stable tiebreak.
func (s *Selector) scorePool(ctx context.Context, req Request, pool []analysis.Review) ([]scoredReview, error) {
	profile := s.profiles.For(req.AnalysisType)

	query := profile.TopicQuery
	if req.ProductName != "" {
		query = req.ProductName + ": " + query
	}
	topicVec, err := s.topicVector(ctx, req.AnalysisType, req.ProductName, query)
	if err != nil {
		return nil, fmt.Errorf("embed topic query: %w", err)
	}

	texts := make([]string, len(pool))
	for i, r := range pool {
		texts[i] = r.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed review pool: %w", err)
	}
	if len(vectors) != len(pool) {
		return nil, fmt.Errorf("embed review pool: got %d vectors for %d reviews", len(vectors), len(pool))
	}

	now := s.now()
	scored := make([]scoredReview, len(pool))
	for i, r := range pool {
		similarity := float64(vectorindex.CosineSimilarity(topicVec, vectors[i]))
		scored[i] = scoredReview{
			review: r,
			score:  scoreReview(profile, s.profiles.Weights, r, similarity, now),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].review.ID.String() < scored[j].review.ID.String()
	})
	return scored, nil
}

// topicVector returns the embedding of the topic query, using the cache when
// enabled. Topic queries are static per analysis type and product, so the
// cached vector only invalidates when the embedding model changes, which the
// key encodes.
func (s *Selector) topicVector(ctx context.Context, t analysis.Type, productName, query string) ([]float32, error) {
	key := fmt.Sprintf("topic:%s:%s:%s", s.embedder.Model(), t, productName)

	if s.cacheTopics {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil && len(vec) == s.embedder.Dimension() {
				return vec, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("topic vector cache read failed")
		}
	}

	vec, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cacheTopics {
		if raw, err := json.Marshal(vec); err == nil {
			if err := s.cache.Set(ctx, key, raw, topicCacheTTL); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("topic vector cache write failed")
			}
		}
	}
	return vec, nil
}

// balancedSelect performs the two-pass final pick. Pass one walks the scored
// reviews and reserves a diversity floor of targetCount/10 per rating
// bucket; pass two fills the remaining slots by score, capping any single
// bucket at ceil(targetCount/3).
func balancedSelect(scored []scoredReview, targetCount int) []analysis.Review {
	if targetCount <= 0 {
		return nil
	}

	floor := targetCount / 10
	ceiling := (targetCount + 2) / 3
	if ceiling < 1 {
		ceiling = 1
	}

	taken := make([]bool, len(scored))
	counts := make(map[int]int, ratingBuckets)
	selected := make([]analysis.Review, 0, targetCount)

	if floor > 0 {
		for i, sr := range scored {
			if len(selected) == targetCount {
				break
			}
			bucket := sr.review.RatingBucket()
			if counts[bucket] >= floor {
				continue
			}
			taken[i] = true
			counts[bucket]++
			selected = append(selected, sr.review)
		}
	}

	for i, sr := range scored {
		if len(selected) == targetCount {
			break
		}
		if taken[i] {
			continue
		}
		bucket := sr.review.RatingBucket()
		if counts[bucket] >= ceiling {
			continue
		}
		taken[i] = true
		counts[bucket]++
		selected = append(selected, sr.review)
	}

	// Final order is by score, not selection pass.
	rank := make(map[uuid.UUID]int, len(scored))
	for i, sr := range scored {
		rank[sr.review.ID] = i
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return rank[selected[i].ID] < rank[selected[j].ID]
	})
	return selected
}
