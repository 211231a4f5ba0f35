package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// Record is one JSON object of a collection.
type Record map[string]any

func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Collection is an ordered in-memory JSON collection answering simple-REST
// list queries.
type Collection struct {
	mu   sync.RWMutex
	rows []Record
}

func NewCollection() *Collection { return &Collection{} }

// Seed inserts v (any JSON-encodable value) and returns the stored record.
func (c *Collection) Seed(v any) (Record, error) {
	rec, err := toRecord(v)
	if err != nil {
		return nil, err
	}
	return c.Create(rec), nil
}

func (c *Collection) Create(in Record) Record {
	rec := clone(in)
	if rec.ID() == "" {
		rec["id"] = uuid.NewString()
	}
	c.mu.Lock()
	c.rows = append(c.rows, rec)
	c.mu.Unlock()
	return clone(rec)
}

func (c *Collection) Get(id string) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rows {
		if r.ID() == id {
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

// Patch merges fields into the record; the id never changes.
func (c *Collection) Patch(id string, fields Record) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.rows {
		if r.ID() != id {
			continue
		}
		next := clone(r)
		for k, v := range fields {
			if k == "id" {
				continue
			}
			next[k] = v
		}
		c.rows[i] = next
		return clone(next), nil
	}
	return nil, ErrNotFound
}

func (c *Collection) Delete(id string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.rows {
		if r.ID() == id {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// Query applies simple-REST filters, sorting and the _start/_end window. total
// is the match count before slicing.
func (c *Collection) Query(q url.Values) (rows []Record, total int, err error) {
	c.mu.RLock()
	matched := make([]Record, 0, len(c.rows))
	for _, r := range c.rows {
		ok, err := matches(r, q)
		if err != nil {
			c.mu.RUnlock()
			return nil, 0, err
		}
		if ok {
			matched = append(matched, clone(r))
		}
	}
	c.mu.RUnlock()

	if err := sortRows(matched, q.Get("_sort"), q.Get("_order")); err != nil {
		return nil, 0, err
	}

	total = len(matched)
	start, end, err := window(q, total)
	if err != nil {
		return nil, 0, err
	}
	return matched[start:end], total, nil
}

var suffixes = []string{"_ne", "_like", "_gte", "_lte", "_gt", "_lt"}

func matches(r Record, q url.Values) (bool, error) {
	for key, values := range q {
		if strings.HasPrefix(key, "_") {
			continue
		}
		field, op := key, ""
		for _, s := range suffixes {
			if strings.HasSuffix(key, s) {
				field, op = strings.TrimSuffix(key, s), s
				break
			}
		}
		got := fmt.Sprint(r[field])
		if r[field] == nil {
			got = ""
		}
		switch op {
		case "":
			if !contains(values, got) {
				return false, nil
			}
		case "_ne":
			if contains(values, got) {
				return false, nil
			}
		case "_like":
			for _, v := range values {
				if !strings.Contains(strings.ToLower(got), strings.ToLower(v)) {
					return false, nil
				}
			}
		default:
			for _, v := range values {
				cmp, err := compare(r[field], v)
				if err != nil {
					return false, fmt.Errorf("filter %s: %w", key, err)
				}
				if !rangeOK(op, cmp) {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func rangeOK(op string, cmp int) bool {
	switch op {
	case "_gte":
		return cmp >= 0
	case "_lte":
		return cmp <= 0
	case "_gt":
		return cmp > 0
	case "_lt":
		return cmp < 0
	}
	return false
}

// compare orders a stored value against a query string: numerically when both
// are numbers, lexically otherwise (ISO dates sort correctly as strings).
func compare(stored any, want string) (int, error) {
	if n, ok := stored.(float64); ok {
		w, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", want)
		}
		switch {
		case n < w:
			return -1, nil
		case n > w:
			return 1, nil
		}
		return 0, nil
	}
	return strings.Compare(fmt.Sprint(stored), want), nil
}

func sortRows(rows []Record, sortParam, orderParam string) error {
	if sortParam == "" {
		return nil
	}
	fields := strings.Split(sortParam, ",")
	orders := strings.Split(orderParam, ",")
	for i := range orders {
		orders[i] = strings.ToLower(strings.TrimSpace(orders[i]))
	}
	for i, f := range fields {
		o := "asc"
		if i < len(orders) && orders[i] != "" {
			o = orders[i]
		}
		if o != "asc" && o != "desc" {
			return fmt.Errorf("invalid _order %q", o)
		}
		fields[i] = strings.TrimSpace(f)
		if i < len(orders) {
			orders[i] = o
		} else {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for i, f := range fields {
			cmp, err := compare(rows[a][f], fmt.Sprint(rows[b][f]))
			if err != nil {
				cmp = strings.Compare(fmt.Sprint(rows[a][f]), fmt.Sprint(rows[b][f]))
			}
			if cmp == 0 {
				continue
			}
			if orders[i] == "desc" {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

func window(q url.Values, total int) (int, int, error) {
	start, end := 0, total
	if s := q.Get("_start"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid _start %q", s)
		}
		start = n
	}
	if s := q.Get("_end"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid _end %q", s)
		}
		end = n
	}
	start = min(start, total)
	end = min(max(end, start), total)
	return start, end, nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func toRecord(v any) (Record, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(buf, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeRecord(r Record, dst any) error {
	buf, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dst)
}

// clone deep-copies through JSON so callers never share nested slices.
func clone(r Record) Record {
	out, err := toRecord(r)
	if err != nil {
		return Record{}
	}
	return out
}
