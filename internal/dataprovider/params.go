package dataprovider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Operator is a list filter comparison.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpContains Operator = "contains"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
)

// querySuffix maps operators to the simple-REST query parameter suffix.
var querySuffix = map[Operator]string{
	OpEq:       "",
	OpNe:       "_ne",
	OpContains: "_like",
	OpGte:      "_gte",
	OpLte:      "_lte",
	OpGt:       "_gt",
	OpLt:       "_lt",
}

// Filter narrows a list. A slice Value is sent as a repeated parameter.
type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

// Sorter orders a list; Order is "asc" or "desc".
type Sorter struct {
	Field string
	Order string
}

// Pagination is 1-based. Off fetches the whole collection.
type Pagination struct {
	Current  int
	PageSize int
	Off      bool
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// ListParams are the arguments of GetList.
type ListParams struct {
	Pagination Pagination
	Sorters    []Sorter
	Filters    []Filter
}

// HasFilter reports whether a filter on field is already present.
func (p ListParams) HasFilter(field string) bool {
	for _, f := range p.Filters {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Query renders p as simple-REST query parameters.
func (p ListParams) Query() (url.Values, error) {
	q := url.Values{}

	if !p.Pagination.Off {
		current, size := p.Pagination.Current, p.Pagination.PageSize
		if current <= 0 {
			current = DefaultPage
		}
		if size <= 0 {
			size = DefaultPageSize
		}
		q.Set("_start", strconv.Itoa((current-1)*size))
		q.Set("_end", strconv.Itoa(current*size))
	}

	if len(p.Sorters) > 0 {
		fields := make([]string, 0, len(p.Sorters))
		orders := make([]string, 0, len(p.Sorters))
		for _, s := range p.Sorters {
			order := strings.ToLower(s.Order)
			if order != "asc" && order != "desc" {
				return nil, fmt.Errorf("invalid sort order %q for %s", s.Order, s.Field)
			}
			fields = append(fields, s.Field)
			orders = append(orders, order)
		}
		q.Set("_sort", strings.Join(fields, ","))
		q.Set("_order", strings.Join(orders, ","))
	}

	for _, f := range p.Filters {
		op := f.Operator
		if op == "" {
			op = OpEq
		}
		suffix, ok := querySuffix[op]
		if !ok {
			return nil, fmt.Errorf("unsupported filter operator %q", op)
		}
		key := f.Field + suffix
		switch v := f.Value.(type) {
		case nil:
		case []string:
			for _, s := range v {
				q.Add(key, s)
			}
		case []any:
			for _, s := range v {
				q.Add(key, fmt.Sprint(s))
			}
		default:
			q.Add(key, fmt.Sprint(v))
		}
	}
	return q, nil
}

// ParseFilter reads a command-line filter such as "status=PAID",
// "legalName_like=acme" or "date_gte=2026-01-01".
func ParseFilter(expr string) (Filter, error) {
	key, value, ok := strings.Cut(expr, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Filter{}, fmt.Errorf("filter %q must look like field=value", expr)
	}
	op := OpEq
	for candidate, suffix := range querySuffix {
		if suffix != "" && strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			op = candidate
			key = strings.TrimSuffix(key, suffix)
			break
		}
	}
	return Filter{Field: key, Operator: op, Value: value}, nil
}

// ParseSorter reads "field", "field:asc", "field:desc" or "-field".
func ParseSorter(expr string) (Sorter, error) {
	expr = strings.TrimSpace(expr)
	if field, ok := strings.CutPrefix(expr, "-"); ok {
		if field == "" || strings.Contains(field, ":") {
			return Sorter{}, fmt.Errorf("sort %q must look like field, field:desc or -field", expr)
		}
		return Sorter{Field: field, Order: "desc"}, nil
	}
	field, order, ok := strings.Cut(expr, ":")
	if !ok {
		order = "asc"
	}
	order = strings.ToLower(order)
	if field == "" || (order != "asc" && order != "desc") {
		return Sorter{}, fmt.Errorf("sort %q must look like field, field:desc or -field", expr)
	}
	return Sorter{Field: field, Order: order}, nil
}
