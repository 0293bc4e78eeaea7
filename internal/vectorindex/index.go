// Package vectorindex provides the namespaced nearest-neighbor store the
// engine keeps review embeddings in. Each (tenant, brand) pair owns one
// namespace; queries never cross namespaces.
package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrIndexUnavailable indicates the index backend could not be reached.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// Index is the gateway to the vector store.
type Index interface {
	// Upsert inserts or replaces vectors in the namespace.
	Upsert(ctx context.Context, namespace string, items []Item) error

	// Query returns up to topK matches for the query vector, restricted by
	// the metadata filter. A zero vector performs a metadata-only fetch.
	Query(ctx context.Context, namespace string, req QueryRequest) ([]Match, error)

	// Delete removes vectors by id from the namespace.
	Delete(ctx context.Context, namespace string, ids []string) error
}

// Item is a vector plus its attached metadata.
type Item struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryRequest describes a filtered top-K query.
type QueryRequest struct {
	Vector []float32 `json:"vector"`
	TopK   int       `json:"topK"`
	Filter Filter    `json:"filter,omitempty"`
}

// Match is one query result.
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Namespace builds the partition key for a tenant+brand pair. All reads and
// writes for that pair are confined to this namespace.
func Namespace(userID, brandID uuid.UUID) string {
	return fmt.Sprintf("user_%s_brand_%s", userID, brandID)
}

// Filter is a metadata filter in operator form. A plain value means exact
// match; operator maps support $gte/$lt, $in, and $exists.
type Filter map[string]any

// Range builds a numeric [gte, lt) condition.
func Range(gte, lt float64) map[string]any {
	return map[string]any{"$gte": gte, "$lt": lt}
}

// In builds a set-membership condition.
func In(values ...string) map[string]any {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return map[string]any{"$in": vals}
}

// Exists builds an existence (or absence) condition.
func Exists(present bool) map[string]any {
	return map[string]any{"$exists": present}
}

// Matches evaluates the filter against a metadata map. Used by the in-memory
// index; the HTTP backend evaluates filters server-side with the same
// operator semantics.
func (f Filter) Matches(metadata map[string]any) bool {
	for field, cond := range f {
		val, present := metadata[field]

		ops, isOps := cond.(map[string]any)
		if !isOps {
			// Plain value: exact match.
			if !present || !looseEqual(val, cond) {
				return false
			}
			continue
		}

		for op, arg := range ops {
			switch op {
			case "$exists":
				want, _ := arg.(bool)
				if present != want {
					return false
				}
			case "$gte":
				if !present || !numericCompare(val, arg, func(a, b float64) bool { return a >= b }) {
					return false
				}
			case "$lt":
				if !present || !numericCompare(val, arg, func(a, b float64) bool { return a < b }) {
					return false
				}
			case "$in":
				if !present || !inSet(val, arg) {
					return false
				}
			default:
				// Unknown operator matches nothing.
				return false
			}
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func numericCompare(val, arg any, cmp func(a, b float64) bool) bool {
	vf, vok := asFloat(val)
	af, aok := asFloat(arg)
	return vok && aok && cmp(vf, af)
}

func inSet(val, arg any) bool {
	items, ok := arg.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if looseEqual(val, item) {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// IsZeroVector reports whether every component is zero. Zero vectors mark
// metadata-only fetches.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// ZeroVector returns an all-zero vector of the given dimension.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}
