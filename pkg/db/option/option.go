// Package option holds composable query options applied by the generic
// repository on top of a *gorm.DB.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"

	ISNULL    Operator = "IS NULL"
	ISNOTNULL Operator = "IS NOT NULL"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// QuerySortBy orders by SortBy when it is listed in Allow. An empty SortBy
// falls back to created_at.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func (s QuerySortBy) clause() string {
	field := s.SortBy
	if field == "" {
		field = "created_at"
	} else if s.Allow != nil && !s.Allow[field] {
		field = "created_at"
	}

	dir := "ASC"
	if strings.EqualFold(s.OrderBy, "desc") {
		dir = "DESC"
	}

	return fmt.Sprintf("%s %s", field, dir)
}

func WithSortBy(sorts ...QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, s := range sorts {
			db = db.Order(s.clause())
		}
		return db
	}
}

func ApplyOperator(conds ...Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			switch c.Operator {
			case IN:
				db = db.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
				continue
			case ISNULL, ISNOTNULL:
				db = db.Where(fmt.Sprintf("%s %s", c.Field, c.Operator))
				continue
			}
			db = db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		}
		return db
	}
}

func ApplyPagination(limit, offset int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			db = db.Limit(limit)
		}
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db
	}
}

// LockingUpdate is a gorm scope adding SELECT ... FOR UPDATE.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}
