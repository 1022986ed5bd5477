// Package memstore is an in-process implementation of store.Client.
//
// It understands the filter subset the activity repositories emit: equality,
// $gt/$gte/$lt/$lte/$eq/$ne/$exists, $or/$and and regular expressions.
package memstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/store"
)

// Client holds every collection in memory, keyed by database and name.
type Client struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// New creates an empty in-memory client.
func New() *Client {
	return &Client{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating the handle lazily.
func (c *Client) Collection(database, name string) store.Collection {
	return c.collection(database, name)
}

// Lookup returns the concrete collection for assertions and fault injection.
func (c *Client) Lookup(database, name string) *Collection {
	return c.collection(database, name)
}

// CollectionNames lists the collections of database that hold documents or indexes.
func (c *Client) CollectionNames(_ context.Context, database string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0)
	for _, coll := range c.collections {
		if coll.database != database || !coll.exists() {
			continue
		}
		names = append(names, coll.name)
	}
	sort.Strings(names)
	return names, nil
}

// Ping always succeeds.
func (c *Client) Ping(context.Context) error { return nil }

// Disconnect is a no-op.
func (c *Client) Disconnect(context.Context) error { return nil }

func (c *Client) collection(database, name string) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := database + "." + name
	coll, ok := c.collections[key]
	if !ok {
		coll = &Collection{database: database, name: name}
		c.collections[key] = coll
	}
	return coll
}

// Collection is an in-memory document collection.
type Collection struct {
	mu          sync.RWMutex
	database    string
	name        string
	docs        []models.ActivityRecord
	indexes     []string
	insertErr   error
	findErr     error
	deleteErr   error
	indexErrs   map[string]error
	insertCalls int
}

// FailInserts makes every subsequent insert return err. Pass nil to clear.
func (c *Collection) FailInserts(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertErr = err
}

// FailFinds makes every subsequent find and count return err. Pass nil to clear.
func (c *Collection) FailFinds(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findErr = err
}

// FailDeletes makes every subsequent delete return err. Pass nil to clear.
func (c *Collection) FailDeletes(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteErr = err
}

// FailIndex makes creating the index called name return err. Pass nil to clear.
func (c *Collection) FailIndex(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexErrs == nil {
		c.indexErrs = make(map[string]error)
	}
	if err == nil {
		delete(c.indexErrs, name)
		return
	}
	c.indexErrs[name] = err
}

// Documents returns a snapshot of the stored documents in insertion order.
func (c *Collection) Documents() []models.ActivityRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.ActivityRecord(nil), c.docs...)
}

// InsertCalls reports how many insert operations reached the collection.
func (c *Collection) InsertCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.insertCalls
}

// Seed appends records verbatim, bypassing id assignment and fault injection.
func (c *Collection) Seed(records ...models.ActivityRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureCreated()
	c.docs = append(c.docs, records...)
}

func (c *Collection) Database() string { return c.database }

func (c *Collection) Name() string { return c.name }

func (c *Collection) Find(_ context.Context, filter bson.D, opts store.FindOptions) ([]models.ActivityRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.findErr != nil {
		return nil, fmt.Errorf("find: %w: %w", store.ErrStoreUnavailable, c.findErr)
	}

	matched := make([]models.ActivityRecord, 0)
	for _, doc := range c.docs {
		ok, err := Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	if len(opts.Sort) > 0 {
		if err := sortRecords(matched, opts.Sort); err != nil {
			return nil, err
		}
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			return []models.ActivityRecord{}, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (c *Collection) InsertOne(_ context.Context, record *models.ActivityRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.insertCalls++
	if c.insertErr != nil {
		return fmt.Errorf("insert one: %w: %w", store.ErrStoreUnavailable, c.insertErr)
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if c.hasID(record.ID) {
		return fmt.Errorf("insert one: duplicate key %s", record.ID.Hex())
	}
	c.ensureCreated()
	c.docs = append(c.docs, *record)
	return nil
}

func (c *Collection) InsertMany(_ context.Context, records []models.ActivityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.insertCalls++
	if c.insertErr != nil {
		return 0, fmt.Errorf("insert many: %w: %w", store.ErrStoreUnavailable, c.insertErr)
	}

	c.ensureCreated()
	inserted := 0
	for _, record := range records {
		if record.ID.IsZero() {
			record.ID = primitive.NewObjectID()
		}
		if c.hasID(record.ID) {
			continue
		}
		c.docs = append(c.docs, record)
		inserted++
	}
	return inserted, nil
}

func (c *Collection) DeleteMany(_ context.Context, filter bson.D) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteErr != nil {
		return 0, fmt.Errorf("delete many: %w: %w", store.ErrStoreUnavailable, c.deleteErr)
	}

	kept := c.docs[:0]
	var deleted int64
	for _, doc := range c.docs {
		ok, err := Matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return deleted, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter bson.D) (int64, error) {
	docs, err := c.Find(ctx, filter, store.FindOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *Collection) CreateIndex(_ context.Context, index store.IndexDefinition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureCreated()
	if err := c.indexErrs[index.Name]; err != nil {
		return fmt.Errorf("create index %s: %w: %w", index.Name, store.ErrStoreUnavailable, err)
	}
	for _, name := range c.indexes {
		if name == index.Name {
			return nil
		}
	}
	c.indexes = append(c.indexes, index.Name)
	return nil
}

func (c *Collection) ListIndexNames(context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.indexes...), nil
}

func (c *Collection) exists() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.indexes) > 0
}

// ensureCreated mirrors the server creating a collection and its _id_ index on first write.
func (c *Collection) ensureCreated() {
	if len(c.indexes) == 0 {
		c.indexes = append(c.indexes, store.DefaultIndexName)
	}
}

func (c *Collection) hasID(id primitive.ObjectID) bool {
	for _, doc := range c.docs {
		if doc.ID == id {
			return true
		}
	}
	return false
}

// Matches evaluates filter against record.
func Matches(record models.ActivityRecord, filter bson.D) (bool, error) {
	for _, elem := range filter {
		var (
			ok  bool
			err error
		)
		switch elem.Key {
		case "$or":
			ok, err = matchClauses(record, elem.Value, false)
		case "$and":
			ok, err = matchClauses(record, elem.Value, true)
		default:
			ok, err = matchField(record, elem.Key, elem.Value)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchClauses(record models.ActivityRecord, value interface{}, all bool) (bool, error) {
	clauses, ok := value.(bson.A)
	if !ok {
		return false, fmt.Errorf("memstore: logical operator expects bson.A, got %T", value)
	}
	for _, clause := range clauses {
		doc, ok := clause.(bson.D)
		if !ok {
			return false, fmt.Errorf("memstore: logical clause expects bson.D, got %T", clause)
		}
		matched, err := Matches(record, doc)
		if err != nil {
			return false, err
		}
		if all && !matched {
			return false, nil
		}
		if !all && matched {
			return true, nil
		}
	}
	return all, nil
}

func matchField(record models.ActivityRecord, key string, condition interface{}) (bool, error) {
	value, present := fieldValue(record, key)

	switch cond := condition.(type) {
	case bson.D:
		for _, op := range cond {
			if op.Key == "$exists" {
				want, ok := op.Value.(bool)
				if !ok {
					return false, fmt.Errorf("memstore: $exists expects a bool, got %T", op.Value)
				}
				if present != want {
					return false, nil
				}
				continue
			}
			if op.Key == "$ne" {
				if !present {
					continue
				}
				cmp, err := compare(value, op.Value)
				if err != nil {
					return false, err
				}
				if cmp == 0 {
					return false, nil
				}
				continue
			}
			if !present {
				return false, nil
			}
			cmp, err := compare(value, op.Value)
			if err != nil {
				return false, err
			}
			var ok bool
			switch op.Key {
			case "$eq":
				ok = cmp == 0
			case "$gt":
				ok = cmp > 0
			case "$gte":
				ok = cmp >= 0
			case "$lt":
				ok = cmp < 0
			case "$lte":
				ok = cmp <= 0
			default:
				return false, fmt.Errorf("memstore: unsupported operator %s", op.Key)
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case primitive.Regex:
		text, ok := value.(string)
		if !present || !ok {
			return false, nil
		}
		pattern := cond.Pattern
		if strings.Contains(cond.Options, "i") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("memstore: invalid regex: %w", err)
		}
		return re.MatchString(text), nil
	default:
		if !present {
			return false, nil
		}
		cmp, err := compare(value, condition)
		if err != nil {
			return false, err
		}
		return cmp == 0, nil
	}
}

func fieldValue(record models.ActivityRecord, key string) (interface{}, bool) {
	switch key {
	case "_id":
		return record.ID, !record.ID.IsZero()
	case "user_id":
		return record.UserID, true
	case "role":
		return record.Role, true
	case "type":
		return record.Type, true
	case "module":
		return record.Module, true
	case "action":
		return record.Action, true
	case "description":
		return derefString(record.Description)
	case "ip":
		return derefString(record.IP)
	case "user_agent":
		return derefString(record.UserAgent)
	case "ref_id":
		if record.RefID == nil {
			return nil, false
		}
		return *record.RefID, true
	case "created_at":
		return record.CreatedAt, record.HasCreatedAt()
	default:
		return nil, false
	}
}

func derefString(value *string) (interface{}, bool) {
	if value == nil {
		return nil, false
	}
	return *value, true
}

func compare(left, right interface{}) (int, error) {
	switch l := left.(type) {
	case int64:
		r, ok := toInt64(right)
		if !ok {
			return 0, fmt.Errorf("memstore: cannot compare int64 with %T", right)
		}
		switch {
		case l < r:
			return -1, nil
		case l > r:
			return 1, nil
		}
		return 0, nil
	case string:
		r, ok := right.(string)
		if !ok {
			return 0, fmt.Errorf("memstore: cannot compare string with %T", right)
		}
		return strings.Compare(l, r), nil
	case time.Time:
		var r time.Time
		switch v := right.(type) {
		case time.Time:
			r = v
		case primitive.DateTime:
			r = v.Time()
		default:
			return 0, fmt.Errorf("memstore: cannot compare time with %T", right)
		}
		return l.Compare(r), nil
	case primitive.ObjectID:
		r, ok := right.(primitive.ObjectID)
		if !ok {
			return 0, fmt.Errorf("memstore: cannot compare ObjectID with %T", right)
		}
		return strings.Compare(l.Hex(), r.Hex()), nil
	default:
		return 0, fmt.Errorf("memstore: unsupported field type %T", left)
	}
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func sortRecords(records []models.ActivityRecord, spec bson.D) error {
	var sortErr error
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range spec {
			direction, ok := toInt64(key.Value)
			if !ok {
				sortErr = fmt.Errorf("memstore: sort direction for %s must be an integer", key.Key)
				return false
			}
			left, lok := fieldValue(records[i], key.Key)
			right, rok := fieldValue(records[j], key.Key)
			if !lok || !rok {
				if lok == rok {
					continue
				}
				// missing values sort first in ascending order
				return (direction > 0) == !lok
			}
			cmp, err := compare(left, right)
			if err != nil {
				sortErr = err
				return false
			}
			if cmp == 0 {
				continue
			}
			if direction < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}
