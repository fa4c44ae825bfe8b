// Package catalog is the static table of purchasable reading packages.
package catalog

import (
	"errors"
	"sort"

	"go.uber.org/fx"

	"readingbot/pkg/errutil"
	"readingbot/pkg/money"
)

var ErrUnknownPackage = errors.New("unknown package")

var Module = fx.Module("catalog", fx.Provide(NewCatalog))

type Package struct {
	Code             string      `json:"code"`
	EntitlementCount int         `json:"entitlement_count"`
	Price            money.Money `json:"price"`
	Description      string      `json:"description"`
}

var defaultPackages = []Package{
	{Code: "buy_5", EntitlementCount: 5, Price: money.MustParse("299.00", "RUB"), Description: "Package of 5 paid readings"},
	{Code: "buy_10", EntitlementCount: 10, Price: money.MustParse("499.00", "RUB"), Description: "Package of 10 paid readings"},
	{Code: "buy_20", EntitlementCount: 20, Price: money.MustParse("899.00", "RUB"), Description: "Package of 20 paid readings"},
}

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	byCode map[string]Package
	list   []Package
}

func NewCatalog() *Catalog {
	return New(defaultPackages...)
}

func New(packages ...Package) *Catalog {
	c := &Catalog{
		byCode: make(map[string]Package, len(packages)),
		list:   make([]Package, 0, len(packages)),
	}
	for _, p := range packages {
		if _, dup := c.byCode[p.Code]; dup {
			continue
		}
		c.byCode[p.Code] = p
		c.list = append(c.list, p)
	}
	sort.SliceStable(c.list, func(i, j int) bool {
		return c.list[i].EntitlementCount < c.list[j].EntitlementCount
	})
	return c
}

func (c *Catalog) Lookup(code string) (Package, error) {
	p, ok := c.byCode[code]
	if !ok {
		return Package{}, errutil.BadRequest("unknown package code "+code, ErrUnknownPackage,
			errutil.WithDetails(errutil.Detail{Field: "package_code", Message: "not in catalog"}))
	}
	return p, nil
}

// List returns packages ordered by entitlement count.
func (c *Catalog) List() []Package {
	out := make([]Package, len(c.list))
	copy(out, c.list)
	return out
}
