// Package memory is an in-memory implementation of storage.Collection. It
// understands the subset of the query language the services use: equality
// filters (with $or), projections, skip/limit, sort, and the $set,
// $setOnInsert and $push update operators.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alakara/harvest/internal/core/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Operation names accepted by Fail.
const (
	OpFind             = "find"
	OpFindOne          = "findOne"
	OpCount            = "count"
	OpInsert           = "insert"
	OpUpdate           = "update"
	OpFindOneAndUpdate = "findOneAndUpdate"
	OpFindOneAndDelete = "findOneAndDelete"
)

// Store holds named collections.
type Store struct {
	mu    sync.Mutex
	colls map[string]*Collection
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{colls: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) storage.Collection {
	return s.Coll(name)
}

// Coll is Collection with the concrete type, for tests that need hooks.
func (s *Store) Coll(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colls[name]
	if !ok {
		c = NewCollection()
		s.colls[name] = c
	}
	return c
}

// Collection is a goroutine-safe slice of documents.
type Collection struct {
	mu     sync.Mutex
	docs   []bson.M
	unique []string
	errs   map[string]error

	// OnFind and OnCount run before the operation reads the documents, outside
	// the collection lock, so they may write to the collection.
	OnFind  func()
	OnCount func()

	calls map[string]int
	// LastFindOptions records the merged options of the most recent Find.
	LastFindOptions *options.FindOptions
}

var _ storage.Collection = (*Collection)(nil)

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// Unique declares a field whose values must be distinct across documents.
func (c *Collection) Unique(field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unique = append(c.unique, field)
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (c *Collection) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
		return
	}
	c.errs[op] = err
}

// Calls returns how many times op was invoked.
func (c *Collection) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Docs returns copies of the stored documents.
func (c *Collection) Docs() []bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bson.M, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, copyDoc(d))
	}
	return out
}

func (c *Collection) begin(op string) error {
	c.calls[op]++
	return c.errs[op]
}

func (c *Collection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if c.OnFind != nil {
		c.OnFind()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := options.Find()
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Skip != nil {
			merged.Skip = o.Skip
		}
		if o.Limit != nil {
			merged.Limit = o.Limit
		}
		if o.Projection != nil {
			merged.Projection = o.Projection
		}
		if o.Sort != nil {
			merged.Sort = o.Sort
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastFindOptions = merged
	if err := c.begin(OpFind); err != nil {
		return nil, err
	}

	if merged.Skip != nil && *merged.Skip < 0 {
		return nil, errors.New("memory: skip must be non-negative")
	}
	if merged.Limit != nil && *merged.Limit < 0 {
		return nil, errors.New("memory: limit must be non-negative")
	}

	matched, err := c.match(filter)
	if err != nil {
		return nil, err
	}
	if merged.Sort != nil {
		if err := sortDocs(matched, merged.Sort); err != nil {
			return nil, err
		}
	}

	start := 0
	if merged.Skip != nil {
		if *merged.Skip > int64(len(matched)) {
			start = len(matched)
		} else {
			start = int(*merged.Skip)
		}
	}
	end := len(matched)
	if merged.Limit != nil && *merged.Limit > 0 && start+int(*merged.Limit) < end {
		end = start + int(*merged.Limit)
	}

	out := make([]interface{}, 0, end-start)
	for _, d := range matched[start:end] {
		p, err := project(d, merged.Projection)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return mongo.NewCursorFromDocuments(out, nil, nil)
}

func (c *Collection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	if err := ctx.Err(); err != nil {
		return errResult(err)
	}

	var projection, sortSpec interface{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Projection != nil {
			projection = o.Projection
		}
		if o.Sort != nil {
			sortSpec = o.Sort
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpFindOne); err != nil {
		return errResult(err)
	}

	matched, err := c.match(filter)
	if err != nil {
		return errResult(err)
	}
	if sortSpec != nil {
		if err := sortDocs(matched, sortSpec); err != nil {
			return errResult(err)
		}
	}
	if len(matched) == 0 {
		return errResult(mongo.ErrNoDocuments)
	}
	p, err := project(matched[0], projection)
	if err != nil {
		return errResult(err)
	}
	return mongo.NewSingleResultFromDocument(p, nil, nil)
}

func (c *Collection) CountDocuments(ctx context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	if c.OnCount != nil {
		c.OnCount()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpCount); err != nil {
		return 0, err
	}
	matched, err := c.match(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (c *Collection) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpInsert); err != nil {
		return nil, err
	}
	id, err := c.insert(document)
	if err != nil {
		return nil, err
	}
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

func (c *Collection) InsertMany(ctx context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpInsert); err != nil {
		return nil, err
	}
	res := &mongo.InsertManyResult{}
	for _, d := range documents {
		id, err := c.insert(d)
		if err != nil {
			return res, err
		}
		res.InsertedIDs = append(res.InsertedIDs, id)
	}
	return res, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	upsert := false
	for _, o := range opts {
		if o != nil && o.Upsert != nil {
			upsert = *o.Upsert
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpUpdate); err != nil {
		return nil, err
	}

	_, after, idx, err := c.apply(filter, update, upsert)
	if err != nil {
		return nil, err
	}
	res := &mongo.UpdateResult{}
	switch {
	case after == nil:
	case idx < 0:
		res.UpsertedCount = 1
		res.UpsertedID = after["_id"]
	default:
		res.MatchedCount = 1
		res.ModifiedCount = 1
	}
	return res, nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	if err := ctx.Err(); err != nil {
		return errResult(err)
	}
	upsert := false
	returnAfter := false
	var projection interface{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Upsert != nil {
			upsert = *o.Upsert
		}
		if o.ReturnDocument != nil {
			returnAfter = *o.ReturnDocument == options.After
		}
		if o.Projection != nil {
			projection = o.Projection
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpFindOneAndUpdate); err != nil {
		return errResult(err)
	}

	before, after, _, err := c.apply(filter, update, upsert)
	if err != nil {
		return errResult(err)
	}
	out := before
	if returnAfter {
		out = after
	}
	if out == nil {
		return errResult(mongo.ErrNoDocuments)
	}
	p, err := project(out, projection)
	if err != nil {
		return errResult(err)
	}
	return mongo.NewSingleResultFromDocument(p, nil, nil)
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter interface{}, _ ...*options.FindOneAndDeleteOptions) *mongo.SingleResult {
	if err := ctx.Err(); err != nil {
		return errResult(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpFindOneAndDelete); err != nil {
		return errResult(err)
	}

	f, err := normalize(filter)
	if err != nil {
		return errResult(err)
	}
	for i, d := range c.docs {
		if matches(d, f) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return mongo.NewSingleResultFromDocument(d, nil, nil)
		}
	}
	return errResult(mongo.ErrNoDocuments)
}

// match returns copies of the documents matching filter, in insertion order.
func (c *Collection) match(filter interface{}) ([]bson.M, error) {
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	var out []bson.M
	for _, d := range c.docs {
		if matches(d, f) {
			out = append(out, copyDoc(d))
		}
	}
	return out, nil
}

func (c *Collection) insert(document interface{}) (interface{}, error) {
	d, err := normalize(document)
	if err != nil {
		return nil, err
	}
	if _, ok := d["_id"]; !ok {
		d["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(d, -1); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, d)
	return d["_id"], nil
}

func (c *Collection) checkUnique(d bson.M, skip int) error {
	keys := append([]string{"_id"}, c.unique...)
	for _, k := range keys {
		v, ok := lookup(d, k)
		if !ok {
			continue
		}
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			if ov, ok := lookup(other, k); ok && equal(ov, v) {
				return duplicateKey(k)
			}
		}
	}
	return nil
}

// apply runs update against the first document matching filter. idx is -1
// when the document was upserted.
func (c *Collection) apply(filter, update interface{}, upsert bool) (before, after bson.M, idx int, err error) {
	f, err := normalize(filter)
	if err != nil {
		return nil, nil, 0, err
	}
	u, err := normalize(update)
	if err != nil {
		return nil, nil, 0, err
	}

	for i, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		next := copyDoc(d)
		if err := applyOps(next, u, false); err != nil {
			return nil, nil, 0, err
		}
		if err := c.checkUnique(next, i); err != nil {
			return nil, nil, 0, err
		}
		c.docs[i] = next
		return copyDoc(d), copyDoc(next), i, nil
	}

	if !upsert {
		return nil, nil, 0, nil
	}

	doc := bson.M{}
	for k, v := range f {
		if len(k) > 0 && k[0] == '$' {
			continue
		}
		setPath(doc, k, v)
	}
	if err := applyOps(doc, u, true); err != nil {
		return nil, nil, 0, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return nil, nil, 0, err
	}
	c.docs = append(c.docs, doc)
	return nil, copyDoc(doc), -1, nil
}

func applyOps(doc, update bson.M, inserting bool) error {
	for op, raw := range update {
		fields, ok := asDoc(raw)
		if !ok {
			return fmt.Errorf("memory: operator %s expects a document", op)
		}
		switch op {
		case "$set":
			for k, v := range fields {
				setPath(doc, k, v)
			}
		case "$setOnInsert":
			if !inserting {
				continue
			}
			for k, v := range fields {
				setPath(doc, k, v)
			}
		case "$push":
			for k, v := range fields {
				items := []interface{}{v}
				if mod, ok := asDoc(v); ok {
					if each, ok := mod["$each"]; ok {
						items = asArray(each)
					}
				}
				cur, _ := lookup(doc, k)
				setPath(doc, k, append(asArray(cur), items...))
			}
		default:
			return fmt.Errorf("memory: unsupported update operator %s", op)
		}
	}
	return nil
}

func sortDocs(docs []bson.M, order interface{}) error {
	raw, err := bson.Marshal(order)
	if err != nil {
		return err
	}
	var keys bson.D
	if err := bson.Unmarshal(raw, &keys); err != nil {
		return err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, _ := lookup(docs[i], k.Key)
			b, _ := lookup(docs[j], k.Key)
			cmp := compare(a, b)
			if cmp == 0 {
				continue
			}
			if truthyNegative(k.Value) {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

func project(doc bson.M, projection interface{}) (bson.M, error) {
	if projection == nil {
		return doc, nil
	}
	p, err := normalize(projection)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return doc, nil
	}

	inclusion := false
	for k, v := range p {
		if k != "_id" && truthy(v) {
			inclusion = true
			break
		}
	}

	out := bson.M{}
	if inclusion {
		if v, ok := p["_id"]; !ok || truthy(v) {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		for k, v := range p {
			if k == "_id" || !truthy(v) {
				continue
			}
			if val, ok := lookup(doc, k); ok {
				setPath(out, k, val)
			}
		}
		return out, nil
	}

	for k, v := range doc {
		out[k] = v
	}
	for k := range p {
		deletePath(out, k)
	}
	return out, nil
}

func errResult(err error) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
}

func duplicateKey(field string) error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{
			Code:    11000,
			Message: fmt.Sprintf("E11000 duplicate key error: %s", field),
		}},
	}
}
