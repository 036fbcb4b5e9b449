package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront-client/internal/apperr"
)

// fakeGateway is an in-memory Gateway double. Records are held as generic
// JSON objects so the same fake serves every collection.
type fakeGateway struct {
	mu     sync.Mutex
	data   map[string][]map[string]interface{}
	nextID map[string]int64

	failErr       error
	failRemaining int
	calls         map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		data:   make(map[string][]map[string]interface{}),
		nextID: make(map[string]int64),
		calls:  make(map[string]int),
	}
}

// seed inserts a record with its id already set.
func (g *fakeGateway) seed(collection string, v interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := toRecord(v)
	g.data[collection] = append(g.data[collection], rec)
	if id := recordID(rec); id >= g.nextID[collection] {
		g.nextID[collection] = id
	}
}

// failWith makes the next n calls fail with err.
func (g *fakeGateway) failWith(err error, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failErr = err
	g.failRemaining = n
}

func (g *fakeGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) checkFailure(op string) error {
	g.calls[op]++
	if g.failRemaining > 0 {
		g.failRemaining--
		return g.failErr
	}
	return nil
}

func (g *fakeGateway) List(ctx context.Context, collection string, out interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFailure("list"); err != nil {
		return err
	}
	return decodeInto(g.data[collection], out)
}

func (g *fakeGateway) Filter(ctx context.Context, collection, field, value string, out interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFailure("filter"); err != nil {
		return err
	}
	matched := make([]map[string]interface{}, 0)
	for _, rec := range g.data[collection] {
		if fmt.Sprint(rec[field]) == value {
			matched = append(matched, rec)
		}
	}
	return decodeInto(matched, out)
}

func (g *fakeGateway) Get(ctx context.Context, collection string, id int64, out interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFailure("get"); err != nil {
		return err
	}
	for _, rec := range g.data[collection] {
		if recordID(rec) == id {
			return decodeInto(rec, out)
		}
	}
	return apperr.Newf(apperr.KindNotFound, "%s/%d not found", collection, id)
}

func (g *fakeGateway) Create(ctx context.Context, collection string, body, out interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFailure("create"); err != nil {
		return err
	}
	rec := toRecord(body)
	g.nextID[collection]++
	rec["id"] = g.nextID[collection]
	g.data[collection] = append(g.data[collection], rec)
	if out == nil {
		return nil
	}
	return decodeInto(rec, out)
}

func (g *fakeGateway) Patch(ctx context.Context, collection string, id int64, body, out interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFailure("patch"); err != nil {
		return err
	}
	for _, rec := range g.data[collection] {
		if recordID(rec) != id {
			continue
		}
		for k, v := range toRecord(body) {
			rec[k] = v
		}
		if out == nil {
			return nil
		}
		return decodeInto(rec, out)
	}
	return apperr.Newf(apperr.KindNotFound, "%s/%d not found", collection, id)
}

func (g *fakeGateway) Delete(ctx context.Context, collection string, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFailure("delete"); err != nil {
		return err
	}
	recs := g.data[collection]
	for i, rec := range recs {
		if recordID(rec) == id {
			g.data[collection] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return apperr.Newf(apperr.KindNotFound, "%s/%d not found", collection, id)
}

func toRecord(v interface{}) map[string]interface{} {
	b, _ := json.Marshal(v)
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}

func decodeInto(src, out interface{}) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func recordID(rec map[string]interface{}) int64 {
	switch id := rec["id"].(type) {
	case float64:
		return int64(id)
	case int64:
		return id
	default:
		return 0
	}
}
