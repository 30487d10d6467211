// Package enrich replaces identifier-only references in raw result rows
// with resolved entity data. Fields matching the foreign-key convention
// (*_id, *_ids) are batched by target entity type, resolved cache-first
// through the request context, and merged back under a sibling field —
// the raw field is always preserved. A reference that cannot be resolved
// is marked unresolved, never dropped and never guessed.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/reqctx"
)

// fieldTypeMap infers the target entity type from the foreign-key field's
// base name. Unknown bases are left untouched: without a type there is
// nothing to fetch, and inventing one would fabricate data.
var fieldTypeMap = map[string]string{
	"assignee":   basecamp.TypePerson,
	"creator":    basecamp.TypePerson,
	"completer":  basecamp.TypePerson,
	"subscriber": basecamp.TypePerson,
	"person":     basecamp.TypePerson,
	"project":    basecamp.TypeProject,
	"todo":       basecamp.TypeTodo,
	"parent":     basecamp.TypeTodo,
	"card":       basecamp.TypeCard,
	"document":   basecamp.TypeDocument,
	"message":    basecamp.TypeMessage,
}

// maxResolveWorkers bounds the enrichment fan-out width.
const maxResolveWorkers = 4

// Reference is one foreign-key occurrence found in a row.
type Reference struct {
	EntityType string
	ID         int64
}

// Enricher resolves references through the per-request cache, falling back
// to live fetches on a miss.
type Enricher struct {
	client basecamp.Client
	logger *zap.Logger
}

// New builds an enricher over the given client.
func New(client basecamp.Client, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{client: client, logger: logger}
}

// CollectReferences scans rows for foreign-key-shaped fields and returns
// the distinct references, batched in no particular order.
func CollectReferences(rows []map[string]interface{}) []Reference {
	seen := map[Reference]bool{}
	var refs []Reference
	for _, row := range rows {
		for field, value := range row {
			entityType, ids, ok := referencesIn(field, value)
			if !ok {
				continue
			}
			for _, id := range ids {
				ref := Reference{EntityType: entityType, ID: id}
				if !seen[ref] {
					seen[ref] = true
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

// Enrich resolves every reference in rows and merges the results back as
// sibling fields ("assignee_ids" gains "assignees", "project_id" gains
// "project"). Rows are returned as new maps; the inputs are not mutated.
func (e *Enricher) Enrich(ctx context.Context, rc *reqctx.Context, projectID int64, rows []map[string]interface{}) ([]map[string]interface{}, error) {
	refs := CollectReferences(rows)
	resolved, err := e.Resolve(ctx, rc, projectID, refs)
	if err != nil {
		return nil, err
	}

	enriched := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]interface{}, len(row)+2)
		for k, v := range row {
			out[k] = v
		}
		for field, value := range row {
			entityType, ids, ok := referencesIn(field, value)
			if !ok {
				continue
			}
			if strings.HasSuffix(field, "_ids") {
				sibling := strings.TrimSuffix(field, "_ids") + "s"
				entities := make([]interface{}, 0, len(ids))
				for _, id := range ids {
					entities = append(entities, resolvedOrMarker(resolved, entityType, id))
				}
				out[sibling] = entities
			} else {
				sibling := strings.TrimSuffix(field, "_id")
				if len(ids) == 1 {
					out[sibling] = resolvedOrMarker(resolved, entityType, ids[0])
				}
			}
		}
		enriched = append(enriched, out)
	}
	return enriched, nil
}

// Resolve fetches every reference cache-first, fanning out per batch with
// a bounded worker count. Misses produce nil entries; they surface later
// as unresolved markers. Only context cancellation aborts resolution.
func (e *Enricher) Resolve(ctx context.Context, rc *reqctx.Context, projectID int64, refs []Reference) (map[Reference]interface{}, error) {
	results := make([]interface{}, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolveWorkers)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			value, err := rc.GetOrFetch(gctx, ref.EntityType, ref.ID, e.fetcher(ref, projectID))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// Not fatal: the reference stays unresolved.
				e.logger.Debug("reference resolution miss",
					zap.String("entity_type", ref.EntityType),
					zap.Int64("id", ref.ID),
					zap.Error(err))
				return nil
			}
			results[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := make(map[Reference]interface{}, len(refs))
	for i, ref := range refs {
		resolved[ref] = results[i]
	}
	return resolved, nil
}

// ResolveEntity resolves a single reference to a plain map, returning the
// unresolved marker when the entity cannot be fetched.
func (e *Enricher) ResolveEntity(ctx context.Context, rc *reqctx.Context, projectID int64, entityType string, id int64) interface{} {
	value, err := rc.GetOrFetch(ctx, entityType, id, e.fetcher(Reference{EntityType: entityType, ID: id}, projectID))
	if err != nil || value == nil {
		return map[string]interface{}{"id": id, "unresolved": true}
	}
	asMap, err := toMap(value)
	if err != nil {
		return map[string]interface{}{"id": id, "unresolved": true}
	}
	return asMap
}

// AsID coerces the numeric JSON shapes an id field can arrive in.
func AsID(value interface{}) (int64, bool) {
	return asID(value)
}

// fetcher returns the live-fetch function for one reference, used only on
// a cache miss.
func (e *Enricher) fetcher(ref Reference, projectID int64) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		switch ref.EntityType {
		case basecamp.TypePerson:
			return e.client.GetPerson(ctx, ref.ID)
		case basecamp.TypeProject:
			return e.client.GetProject(ctx, ref.ID)
		case basecamp.TypeTodo:
			return e.client.GetTodo(ctx, projectID, ref.ID)
		default:
			return nil, fmt.Errorf("no fetcher for entity type %q", ref.EntityType)
		}
	}
}

// resolvedOrMarker converts a resolved entity to a plain map, or returns
// the explicit unresolved marker so callers can tell "no such entity"
// apart from "field absent".
func resolvedOrMarker(resolved map[Reference]interface{}, entityType string, id int64) interface{} {
	value := resolved[Reference{EntityType: entityType, ID: id}]
	if value == nil {
		return map[string]interface{}{"id": id, "unresolved": true}
	}
	asMap, err := toMap(value)
	if err != nil {
		return map[string]interface{}{"id": id, "unresolved": true}
	}
	return asMap
}

// referencesIn extracts the ids and target type of one foreign-key field.
func referencesIn(field string, value interface{}) (string, []int64, bool) {
	var base string
	switch {
	case strings.HasSuffix(field, "_ids"):
		base = strings.TrimSuffix(field, "_ids")
	case strings.HasSuffix(field, "_id"):
		base = strings.TrimSuffix(field, "_id")
	default:
		return "", nil, false
	}

	entityType, ok := fieldTypeMap[base]
	if !ok {
		return "", nil, false
	}

	ids := extractIDs(value)
	if len(ids) == 0 {
		return "", nil, false
	}
	return entityType, ids, true
}

func extractIDs(value interface{}) []int64 {
	switch v := value.(type) {
	case []interface{}:
		var ids []int64
		for _, item := range v {
			if id, ok := asID(item); ok {
				ids = append(ids, id)
			}
		}
		return ids
	case []int64:
		return v
	default:
		if id, ok := asID(v); ok {
			return []int64{id}
		}
	}
	return nil
}

func asID(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	}
	return 0, false
}

// toMap converts a typed entity to a generic map through one JSON round
// trip so enriched rows stay uniformly map-shaped.
func toMap(value interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
