package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore keeps documents in process as BSON maps. Every read and write goes through a
// BSON round trip so documents behave as they do when stored in MongoDB. It backs the
// memory database driver and the tests.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	docs   map[string]bson.M
	order  []string
	unique []string
}

func NewMemoryStore[T any](uniqueFields ...string) *MemoryStore[T] {
	return &MemoryStore[T]{
		docs:   make(map[string]bson.M),
		unique: uniqueFields,
	}
}

func (s *MemoryStore[T]) Insert(ctx context.Context, doc *T) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"].(string)
	if !ok || id == "" {
		return errors.New("document has no string _id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; exists {
		return fmt.Errorf("insert %s: %w", id, ErrDuplicateKey)
	}
	if err := s.checkUnique(id, m); err != nil {
		return err
	}
	s.docs[id] = m
	s.order = append(s.order, id)
	return nil
}

func (s *MemoryStore[T]) InsertMany(ctx context.Context, docs []*T) (int, error) {
	inserted := 0
	var errs []error
	for _, doc := range docs {
		if err := s.Insert(ctx, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		inserted++
	}
	return inserted, errors.Join(errs...)
}

func (s *MemoryStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	s.mu.RLock()
	m, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return fromDoc[T](m)
}

func (s *MemoryStore[T]) FindOne(ctx context.Context, q Query) (*T, error) {
	q.Limit = 1
	docs, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return &docs[0], nil
}

func (s *MemoryStore[T]) Find(ctx context.Context, q Query) ([]T, error) {
	matched, err := s.match(q)
	if err != nil {
		return nil, err
	}

	sortMatched(matched, q)

	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, m := range matched {
		doc, err := fromDoc[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (s *MemoryStore[T]) Count(ctx context.Context, q Query) (int64, error) {
	matched, err := s.match(q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, id string, fields bson.M) (*T, error) {
	set, err := toDoc(fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := applySet(current, set)
	if err := s.checkUnique(id, next); err != nil {
		return nil, err
	}
	s.docs[id] = next
	return fromDoc[T](next)
}

func (s *MemoryStore[T]) UpdateOne(ctx context.Context, q Query, fields bson.M) (*T, error) {
	set, err := toDoc(fields)
	if err != nil {
		return nil, err
	}
	cond, err := compileQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.matchLocked(cond)
	if len(matched) == 0 {
		return nil, ErrNotFound
	}
	sortMatched(matched, q)
	current := matched[0]
	id, _ := current["_id"].(string)

	plain := bson.M{}
	positional := bson.M{}
	for k, v := range set {
		if strings.Contains(k, ".$.") {
			positional[k] = v
		} else {
			plain[k] = v
		}
	}
	next := applySet(current, plain)
	for path, value := range positional {
		if err := setPositional(next, cond, path, value); err != nil {
			return nil, err
		}
	}
	if err := s.checkUnique(id, next); err != nil {
		return nil, err
	}
	s.docs[id] = next
	return fromDoc[T](next)
}

func (s *MemoryStore[T]) UpdateMany(ctx context.Context, q Query, fields bson.M) (int64, error) {
	set, err := toDoc(fields)
	if err != nil {
		return 0, err
	}
	matched, err := s.match(q)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, m := range matched {
		id, _ := m["_id"].(string)
		current, ok := s.docs[id]
		if !ok {
			continue
		}
		s.docs[id] = applySet(current, set)
		modified++
	}
	return modified, nil
}

func (s *MemoryStore[T]) Increment(ctx context.Context, id string, deltas map[string]int) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := applySet(current, bson.M{})
	for field, delta := range deltas {
		base, _ := toFloat(next[field])
		next[field] = int64(base) + int64(delta)
	}
	s.docs[id] = next
	return fromDoc[T](next)
}

func (s *MemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	s.remove(id)
	return nil
}

func (s *MemoryStore[T]) DeleteMany(ctx context.Context, q Query) (int64, error) {
	matched, err := s.match(q)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, m := range matched {
		id, _ := m["_id"].(string)
		if _, ok := s.docs[id]; ok {
			s.remove(id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore[T]) remove(id string) {
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MemoryStore[T]) checkUnique(id string, m bson.M) error {
	for _, field := range s.unique {
		value, ok := m[field]
		if !ok || value == nil {
			continue
		}
		for otherID, other := range s.docs {
			if otherID == id {
				continue
			}
			if c, ok := compare(other[field], value); ok && c == 0 {
				return fmt.Errorf("%s %v: %w", field, value, ErrDuplicateKey)
			}
		}
	}
	return nil
}

func (s *MemoryStore[T]) match(q Query) ([]bson.M, error) {
	cond, err := compileQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchLocked(cond), nil
}

// matchLocked expects s.mu to be held.
func (s *MemoryStore[T]) matchLocked(cond *compiledQuery) []bson.M {
	var out []bson.M
	for _, id := range s.order {
		m := s.docs[id]
		if cond.matches(m) {
			out = append(out, m)
		}
	}
	return out
}

func sortMatched(matched []bson.M, q Query) {
	keys := q.sortKeys()
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, k := range keys {
			a, _ := lookup(matched[i], k.field)
			b, _ := lookup(matched[j], k.field)
			c := compareForSort(a, b)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// setPositional resolves "field.$.key" against the first element of field that
// satisfies the query's element match, copying the array before writing.
func setPositional(doc bson.M, cond *compiledQuery, path string, value any) error {
	field, key, _ := strings.Cut(path, ".$.")
	want, ok := cond.elems[field]
	if !ok || strings.Contains(field, ".") || strings.Contains(key, ".") {
		return fmt.Errorf("unsupported positional update %q", path)
	}
	idx := elemIndex(doc, field, want)
	if idx < 0 {
		return fmt.Errorf("no element of %s matches for %q", field, path)
	}

	arr := doc[field].(bson.A)
	next := make(bson.A, len(arr))
	copy(next, arr)
	el, _ := asDoc(arr[idx])
	updated := make(bson.M, len(el)+1)
	for k, v := range el {
		updated[k] = v
	}
	updated[key] = value
	next[idx] = updated
	doc[field] = next
	return nil
}

// elemIndex returns the position of the first element of the array at field whose
// values equal every entry of want, or -1.
func elemIndex(m bson.M, field string, want map[string]any) int {
	got, _ := lookup(m, field)
	arr, ok := got.(bson.A)
	if !ok {
		return -1
	}
	for i, el := range arr {
		doc, ok := asDoc(el)
		if !ok {
			continue
		}
		all := true
		for k, w := range want {
			v, _ := lookup(doc, k)
			if !valueMatches(v, w) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

func asDoc(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case bson.D:
		m := make(bson.M, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

// compiledQuery holds Query values after the same BSON normalisation as stored documents.
type compiledQuery struct {
	equals       map[string]any
	in           map[string][]any
	elems        map[string]map[string]any
	search       string
	searchFields []string
	dateField    string
	from, to     any
}

func compileQuery(q Query) (*compiledQuery, error) {
	c := &compiledQuery{
		equals:       map[string]any{},
		in:           map[string][]any{},
		elems:        map[string]map[string]any{},
		search:       strings.ToLower(q.Search),
		searchFields: q.SearchFields,
		dateField:    q.DateField,
	}
	for field, value := range q.Equals {
		if _, constrained := q.In[field]; constrained {
			continue
		}
		v, err := normalize(value)
		if err != nil {
			return nil, err
		}
		c.equals[field] = v
	}
	for field, values := range q.In {
		for _, value := range values {
			v, err := normalize(value)
			if err != nil {
				return nil, err
			}
			c.in[field] = append(c.in[field], v)
		}
		if c.in[field] == nil {
			c.in[field] = []any{}
		}
	}
	for field, match := range q.Elem {
		want := make(map[string]any, len(match))
		for k, value := range match {
			v, err := normalize(value)
			if err != nil {
				return nil, err
			}
			want[k] = v
		}
		c.elems[field] = want
	}
	if q.From != nil {
		c.from = bson.NewDateTimeFromTime(q.From.UTC())
	}
	if q.To != nil {
		c.to = bson.NewDateTimeFromTime(q.To.UTC())
	}
	return c, nil
}

func (c *compiledQuery) matches(m bson.M) bool {
	for field, want := range c.equals {
		got, _ := lookup(m, field)
		if !valueMatches(got, want) {
			return false
		}
	}

	for field, wants := range c.in {
		got, _ := lookup(m, field)
		found := false
		for _, want := range wants {
			if valueMatches(got, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for field, want := range c.elems {
		if elemIndex(m, field, want) < 0 {
			return false
		}
	}

	if c.search != "" && len(c.searchFields) > 0 {
		found := false
		for _, field := range c.searchFields {
			got, _ := lookup(m, field)
			if containsFold(got, c.search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if c.dateField != "" && (c.from != nil || c.to != nil) {
		got, ok := lookup(m, c.dateField)
		if !ok {
			return false
		}
		if c.from != nil {
			if cmp, ok := compare(got, c.from); !ok || cmp < 0 {
				return false
			}
		}
		if c.to != nil {
			if cmp, ok := compare(got, c.to); !ok || cmp >= 0 {
				return false
			}
		}
	}

	return true
}

// valueMatches follows MongoDB equality: an array field matches when any element matches.
func valueMatches(got, want any) bool {
	if arr, ok := got.(bson.A); ok {
		if _, wantArr := want.(bson.A); wantArr {
			return reflect.DeepEqual(arr, want)
		}
		for _, el := range arr {
			if c, ok := compare(el, want); ok && c == 0 {
				return true
			}
		}
		return false
	}
	if got == nil && want == nil {
		return true
	}
	c, ok := compare(got, want)
	return ok && c == 0
}

func containsFold(got any, needle string) bool {
	switch v := got.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), needle)
	case bson.A:
		for _, el := range v {
			if containsFold(el, needle) {
				return true
			}
		}
	}
	return false
}

func lookup(m bson.M, path string) (any, bool) {
	var current any = m
	for _, part := range strings.Split(path, ".") {
		switch doc := current.(type) {
		case bson.M:
			v, ok := doc[part]
			if !ok {
				return nil, false
			}
			current = v
		case bson.D:
			found := false
			for _, e := range doc {
				if e.Key == part {
					current = e.Value
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return current, true
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case bson.DateTime:
		y, ok := b.(bson.DateTime)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	}

	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}

// compareForSort orders missing values first, then falls back to the formatted value for mixed types.
func compareForSort(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func applySet(current, set bson.M) bson.M {
	next := make(bson.M, len(current)+len(set)+1)
	for k, v := range current {
		next[k] = v
	}
	for k, v := range set {
		next[k] = v
	}
	next["updatedAt"] = bson.NewDateTimeFromTime(time.Now().UTC())
	return next
}

func normalize(value any) (any, error) {
	m, err := toDoc(bson.M{"v": value})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return m, nil
}

func fromDoc[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}
