package repository

import (
	"fmt"

	"commerce-api/apperr"

	"gorm.io/gorm"
)

// Filter is one field/operator/value triple. Field and operator are checked
// against allow-lists before they reach SQL; values always bind as
// parameters.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// QuerySpec is a validated description of a list query: filters, one sort
// key, and a page window.
type QuerySpec struct {
	Filters []Filter
	SortBy  string
	SortDir string
	Page    int
	Limit   int
}

var allowedOps = map[string]string{
	"eq":   "=",
	"gte":  ">=",
	"lte":  "<=",
	"gt":   ">",
	"lt":   "<",
	"like": "LIKE",
}

// Apply translates the spec into a parameterized query. Fields and sort keys
// must appear in the caller-supplied allow-lists.
func (q QuerySpec) Apply(db *gorm.DB, fields, sorts map[string]bool) (*gorm.DB, error) {
	for _, f := range q.Filters {
		if !fields[f.Field] {
			return nil, apperr.WithMessage(apperr.ErrBadRequest,
				fmt.Sprintf("Unknown filter field: %s", f.Field))
		}
		op, ok := allowedOps[f.Op]
		if !ok {
			return nil, apperr.WithMessage(apperr.ErrBadRequest,
				fmt.Sprintf("Unknown filter operator: %s", f.Op))
		}
		value := f.Value
		if op == "LIKE" {
			value = fmt.Sprintf("%%%v%%", f.Value)
		}
		db = db.Where(fmt.Sprintf("%s %s ?", f.Field, op), value)
	}

	if q.SortBy != "" {
		if !sorts[q.SortBy] {
			return nil, apperr.WithMessage(apperr.ErrBadRequest,
				fmt.Sprintf("Unknown sort field: %s", q.SortBy))
		}
		dir := "ASC"
		if q.SortDir == "desc" || q.SortDir == "DESC" {
			dir = "DESC"
		}
		db = db.Order(q.SortBy + " " + dir)
	}
	return db, nil
}

// Window returns the normalized page and limit.
func (q QuerySpec) Window() (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
