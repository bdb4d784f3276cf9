package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/quarry/query"
	"github.com/jacentio/quarry/schema"
	"github.com/jacentio/quarry/transport"
)

// Store executes compiled queries and document writes through a transport.
// It holds no mutable state of its own and may be shared freely across
// goroutines.
type Store struct {
	t        transport.Transport
	registry *schema.Registry
	config   Config
}

// New creates a new Store instance.
func New(t transport.Transport, registry *schema.Registry, config Config) *Store {
	config.validate()
	return &Store{
		t:        t,
		registry: registry,
		config:   config,
	}
}

// Registry returns the schema registry, or nil if not set.
func (s *Store) Registry() *schema.Registry { return s.registry }

// --- Reads ---

// Find executes a query and materializes every matching document. With a
// declared shape the entities keep declared fields only; untyped sources
// return raw field maps. Row order is the store's order except for the
// trailing-window double reversal.
func (s *Store) Find(ctx context.Context, q *query.Query) ([]*Entity, error) {
	rows, c, err := s.run(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(rows))
	for _, r := range rows {
		e, err := materializeEntity(r, c.Source)
		if err != nil {
			return nil, err
		}
		e.Fields = projectRow(e.Fields, c.Projection)
		out = append(out, e)
	}
	return out, nil
}

// FindRows executes a query and returns plain field maps: the projected
// fields when the query selects specific ones, whole raw documents otherwise.
func (s *Store) FindRows(ctx context.Context, q *query.Query) ([]Row, error) {
	rows, c, err := s.run(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		fields, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, projectRow(fields, c.Projection))
	}
	return out, nil
}

// First returns the leading row of the query's ordering, or nil when the
// query matches nothing.
func (s *Store) First(ctx context.Context, q *query.Query) (*Entity, error) {
	entities, err := s.Find(ctx, q.Clone().Limit(1))
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0], nil
}

// Last returns the trailing row of the query's ordering without scanning the
// full collection: the ordering is reversed at compile time, the fetch is
// capped at one row, and the (single-row) result needs no client reversal
// beyond the one Find already applies.
func (s *Store) Last(ctx context.Context, q *query.Query) (*Entity, error) {
	entities, err := s.Find(ctx, q.Clone().Reverse().Limit(1))
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0], nil
}

// Get fetches one document by identity. A miss returns (nil, nil); use
// MustGet for the raising variant. String forms of a numeric identity are
// normalized before the lookup.
func (s *Store) Get(ctx context.Context, collection string, key any) (*Entity, error) {
	kf := schema.DefaultKeyField
	if desc := s.registry.Lookup(collection); desc != nil {
		kf = desc.Key()
	}
	return s.GetBy(ctx, collection, map[string]any{kf: key})
}

// MustGet fetches one document by identity and returns ErrNotFound on a miss.
func (s *Store) MustGet(ctx context.Context, collection string, key any) (*Entity, error) {
	e, err := s.Get(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s[%v]", ErrNotFound, collection, key)
	}
	return e, nil
}

// GetBy fetches the first document matching the exact-match conjunction of
// all given fields. A miss returns (nil, nil).
func (s *Store) GetBy(ctx context.Context, collection string, by map[string]any) (*Entity, error) {
	q := query.New(collection)
	// Deterministic predicate order keeps statements cacheable.
	fields := make([]string, 0, len(by))
	for f := range by {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		q.Where(query.Eq(f, by[f]))
	}
	return s.First(ctx, q)
}

// MustGetBy is GetBy returning ErrNotFound on a miss.
func (s *Store) MustGetBy(ctx context.Context, collection string, by map[string]any) (*Entity, error) {
	e, err := s.GetBy(ctx, collection, by)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, collection)
	}
	return e, nil
}

// run binds, compiles and executes a query, returning window-corrected rows.
// A constant-false predicate returns no rows and performs no round trip.
func (s *Store) run(ctx context.Context, q *query.Query) ([]transport.Row, *query.Compiled, error) {
	bound := q.Clone()
	if bound.Collection() == nil {
		if desc := s.registry.Lookup(bound.Source()); desc != nil {
			bound.Bind(desc)
		}
	}
	c, err := query.CompileWith(bound, query.Options{TablePrefix: s.config.TablePrefix})
	if err != nil {
		return nil, nil, err
	}
	if c.Never {
		return nil, c, nil
	}
	raw, err := s.t.Query(ctx, transport.Statement{
		Text:   c.Text,
		Params: c.Params,
		Limit:  c.FetchLimit(),
	})
	if err != nil {
		return nil, nil, err
	}
	return materializeRows(raw, c), c, nil
}

// --- Writes ---

// Insert persists a new document built from the entity's defaults merged
// with the change set, change-set entries winning. A caller-supplied
// identity is sent verbatim; otherwise the store assigns one and it is read
// back from the write response along with every populate-after-write field.
func (s *Store) Insert(ctx context.Context, cs *Changeset) (*Entity, error) {
	e, coll, err := s.writeTarget(cs)
	if err != nil {
		return nil, err
	}

	body := make(Row, len(e.Fields)+len(cs.changes))
	for k, v := range e.Fields {
		body[k] = v
	}
	for _, ch := range cs.changes {
		body[ch.Field] = ch.Value
	}
	if err := normalizeBody(coll, body); err != nil {
		return nil, err
	}

	doc, err := attributevalue.MarshalMap(map[string]any(body))
	if err != nil {
		return nil, fmt.Errorf("quarry: encode document: %w", err)
	}

	res, err := s.t.Put(ctx, transport.PutOp{
		Table:    s.config.TablePrefix + coll.Name,
		KeyField: coll.Key(),
		RevField: coll.Rev(),
		Doc:      doc,
	})
	if err != nil {
		return nil, translateConstraint(err, coll)
	}

	return s.mergeWrite(coll, body, res.Doc, true)
}

// Update persists only the change-set entries of an already-persisted
// entity. An empty change set still performs an idempotent no-op round trip;
// populate-after-write fields are re-read from the response either way.
func (s *Store) Update(ctx context.Context, cs *Changeset) (*Entity, error) {
	e, coll, err := s.writeTarget(cs)
	if err != nil {
		return nil, err
	}
	keyAV, err := s.keyAttr(coll, e)
	if err != nil {
		return nil, err
	}

	set := make(Row, len(cs.changes))
	for _, ch := range cs.changes {
		if ch.Field == coll.Key() {
			return nil, fmt.Errorf("%w: %s", ErrImmutableKey, ch.Field)
		}
		set[ch.Field] = ch.Value
	}
	if err := normalizeBody(coll, set); err != nil {
		return nil, err
	}
	setAttrs, err := attributevalue.MarshalMap(map[string]any(set))
	if err != nil {
		return nil, fmt.Errorf("quarry: encode document: %w", err)
	}

	res, err := s.t.Update(ctx, transport.UpdateOp{
		Table:    s.config.TablePrefix + coll.Name,
		KeyField: coll.Key(),
		RevField: coll.Rev(),
		Key:      keyAV,
		Set:      setAttrs,
	})
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s[%v]", ErrNotFound, coll.Name, e.Key())
		}
		return nil, translateConstraint(err, coll)
	}

	merged := e.clone()
	for _, ch := range cs.changes {
		merged.Fields[ch.Field] = set[ch.Field]
	}
	return s.mergeWrite(coll, merged.Fields, res.Doc, false)
}

// Delete removes the entity's document. The returned snapshot carries the
// deleted lifecycle marker with every other field untouched.
func (s *Store) Delete(ctx context.Context, e *Entity) (*Entity, error) {
	if e == nil || e.Collection == nil {
		return nil, ErrUntypedWrite
	}
	coll := e.Collection
	keyAV, err := s.keyAttr(coll, e)
	if err != nil {
		return nil, err
	}

	_, err = s.t.Delete(ctx, transport.DeleteOp{
		Table:    s.config.TablePrefix + coll.Name,
		KeyField: coll.Key(),
		Key:      keyAV,
	})
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s[%v]", ErrNotFound, coll.Name, e.Key())
		}
		return nil, translateConstraint(err, coll)
	}

	out := e.clone()
	out.State = Deleted
	return out, nil
}

// WriteOption adjusts a bulk write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	namespace string
}

// WithNamespace scopes a bulk write to a storage namespace. The target store
// cannot express namespaces, so the write fails before any network call,
// mirroring the query compiler.
func WithNamespace(ns string) WriteOption {
	return func(o *writeOptions) { o.namespace = ns }
}

// InsertAll persists the given document bodies as one atomic batch. Zero
// documents short-circuit to count 0 with no store round trip. The persisted
// bodies are returned in input order when the transport can report them.
func (s *Store) InsertAll(ctx context.Context, collection string, docs []map[string]any, opts ...WriteOption) (int, []Row, error) {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace != "" {
		return 0, nil, fmt.Errorf("%w: %q", query.ErrUnsupportedNamespace, o.namespace)
	}
	if len(docs) == 0 {
		return 0, nil, nil
	}

	desc := s.registry.Lookup(collection)
	kf, rf := schema.DefaultKeyField, schema.DefaultRevField
	if desc != nil {
		kf, rf = desc.Key(), desc.Rev()
	}

	rows := make([]transport.Row, len(docs))
	for i, d := range docs {
		body := Row(d)
		if desc != nil {
			body = make(Row, len(d))
			for k, v := range d {
				body[k] = v
			}
			if err := normalizeBody(desc, body); err != nil {
				return 0, nil, err
			}
		}
		row, err := attributevalue.MarshalMap(map[string]any(body))
		if err != nil {
			return 0, nil, fmt.Errorf("quarry: encode document %d: %w", i, err)
		}
		rows[i] = row
	}

	res, err := s.t.BatchPut(ctx, s.config.TablePrefix+collection, kf, rf, rows)
	if err != nil {
		return 0, nil, translateConstraint(err, desc)
	}

	var out []Row
	if s.t.Capabilities().ReturnsBatchDocuments {
		out = make([]Row, 0, len(res.Docs))
		for _, d := range res.Docs {
			fields, err := decodeRow(d)
			if err != nil {
				return 0, nil, err
			}
			out = append(out, fields)
		}
	}
	return res.Count, out, nil
}

// --- helpers ---

// writeTarget validates the common preconditions of a single-entity write.
func (s *Store) writeTarget(cs *Changeset) (*Entity, *schema.Collection, error) {
	if cs == nil || cs.entity == nil || cs.entity.Collection == nil {
		return nil, nil, ErrUntypedWrite
	}
	if cs.namespace != "" {
		return nil, nil, fmt.Errorf("%w: %q", query.ErrUnsupportedNamespace, cs.namespace)
	}
	return cs.entity, cs.entity.Collection, nil
}

// keyAttr normalizes the entity's identity to its declared kind and encodes
// it as a type-tagged attribute.
func (s *Store) keyAttr(coll *schema.Collection, e *Entity) (types.AttributeValue, error) {
	key := e.Key()
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, coll.Name)
	}
	norm, err := schema.NormalizeKey(coll, key)
	if err != nil {
		return nil, err
	}
	av, err := attributevalue.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("quarry: encode key: %w", err)
	}
	return av, nil
}

// normalizeBody validates every field against the descriptor and coerces
// declared kinds. Unresolvable fields fail before any network call.
func normalizeBody(coll *schema.Collection, body Row) error {
	for k, v := range body {
		f, ok := coll.Field(k)
		if !ok {
			return fmt.Errorf("%w: %q in collection %q", query.ErrUnknownField, k, coll.Name)
		}
		if f.Kind == schema.Any || v == nil {
			continue
		}
		norm, err := schema.NormalizeValue(f.Kind, k, v)
		if err != nil {
			return err
		}
		body[k] = norm
	}
	return nil
}

// mergeWrite builds the post-write snapshot: the sent body plus the
// identity (on insert) and every populate-after-write field re-read from the
// write response. Stale caller-held revisions are never trusted.
func (s *Store) mergeWrite(coll *schema.Collection, body Row, respDoc transport.Row, insert bool) (*Entity, error) {
	out := &Entity{Collection: coll, Fields: body, State: Persisted}
	if respDoc == nil {
		return out, nil
	}
	resp, err := decodeRow(respDoc)
	if err != nil {
		return nil, err
	}
	if insert {
		if v, ok := resp[coll.Key()]; ok {
			out.Fields[coll.Key()] = v
		}
	}
	for _, f := range coll.Populated() {
		if v, ok := resp[f]; ok {
			out.Fields[f] = v
		}
	}
	return out, nil
}
