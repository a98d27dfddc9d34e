package repository

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query is the storage-independent description of a find. A field named in both
// Equals and In is constrained by In.
type Query struct {
	Equals       map[string]any
	In           map[string][]any
	Elem         map[string]map[string]any // array field -> fields one element must equal
	Search       string
	SearchFields []string
	DateField    string
	From         *time.Time // inclusive
	To           *time.Time // exclusive
	Sort         string     // comma separated, "-" prefix for descending
	Skip         int64
	Limit        int64
}

func NewQuery() Query {
	return Query{Equals: map[string]any{}, In: map[string][]any{}}
}

func (q Query) Where(field string, value any) Query {
	if q.Equals == nil {
		q.Equals = map[string]any{}
	}
	q.Equals[field] = value
	return q
}

// WhereNotEmpty adds an equality constraint only when value is non-empty.
func (q Query) WhereNotEmpty(field, value string) Query {
	if strings.TrimSpace(value) == "" {
		return q
	}
	return q.Where(field, value)
}

func (q Query) WhereIn(field string, values ...any) Query {
	if q.In == nil {
		q.In = map[string][]any{}
	}
	q.In[field] = values
	return q
}

// WhereElem requires some element of the array field to equal every value in match.
// Update paths of the form "field.$.key" then address that element.
func (q Query) WhereElem(field string, match map[string]any) Query {
	if q.Elem == nil {
		q.Elem = map[string]map[string]any{}
	}
	q.Elem[field] = match
	return q
}

func (q Query) Matching(search string, fields ...string) Query {
	q.Search = strings.TrimSpace(search)
	q.SearchFields = fields
	return q
}

func (q Query) Between(field string, from, to *time.Time) Query {
	q.DateField = field
	q.From = from
	q.To = to
	return q
}

func (q Query) SortBy(sort string) Query {
	q.Sort = sort
	return q
}

// Paginate applies page/limit clamping: page >= 1, 1 <= limit <= MaxPageSize.
func (q Query) Paginate(page, limit int) Query {
	page, limit = NormalizePage(page, limit)
	q.Skip = int64((page - 1) * limit)
	q.Limit = int64(limit)
	return q
}

func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Filter renders the query as a MongoDB filter document.
func (q Query) Filter() bson.M {
	filter := bson.M{}
	for field, value := range q.Equals {
		filter[field] = value
	}
	for field, values := range q.In {
		filter[field] = bson.M{"$in": values}
	}
	for field, match := range q.Elem {
		elem := bson.M{}
		for k, v := range match {
			elem[k] = v
		}
		filter[field] = bson.M{"$elemMatch": elem}
	}

	if q.Search != "" && len(q.SearchFields) > 0 {
		pattern := regexp.QuoteMeta(q.Search)
		or := bson.A{}
		for _, field := range q.SearchFields {
			or = append(or, bson.M{field: bson.Regex{Pattern: pattern, Options: "i"}})
		}
		filter["$or"] = or
	}

	if q.DateField != "" && (q.From != nil || q.To != nil) {
		rng := bson.M{}
		if q.From != nil {
			rng["$gte"] = q.From.UTC()
		}
		if q.To != nil {
			rng["$lt"] = q.To.UTC()
		}
		filter[q.DateField] = rng
	}

	return filter
}

type sortKey struct {
	field string
	desc  bool
}

func (q Query) sortKeys() []sortKey {
	var keys []sortKey
	for _, part := range strings.Split(q.Sort, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			keys = append(keys, sortKey{field: part[1:], desc: true})
		} else {
			keys = append(keys, sortKey{field: strings.TrimPrefix(part, "+")})
		}
	}
	return keys
}

// SortDoc renders Sort as an ordered MongoDB sort document; nil when unsorted.
func (q Query) SortDoc() bson.D {
	keys := q.sortKeys()
	if len(keys) == 0 {
		return nil
	}
	doc := bson.D{}
	for _, k := range keys {
		dir := 1
		if k.desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: k.field, Value: dir})
	}
	return doc
}
