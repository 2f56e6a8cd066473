// Package catalog holds the static reference datasets the coach is grounded on:
// branded dairy products and typical Colombian foods.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/products.json
var productsJSON []byte

//go:embed data/regional_foods.json
var regionalFoodsJSON []byte

// Product is one branded product the coach may suggest.
type Product struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Serving  string  `json:"serving"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// RegionalFood is a reference portion of a typical Colombian dish.
type RegionalFood struct {
	Name     string  `json:"name"`
	Region   string  `json:"region"`
	Serving  string  `json:"serving"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	Products      []Product
	RegionalFoods []RegionalFood
}

// Load parses the embedded datasets.
func Load() (*Catalog, error) {
	c := &Catalog{}
	if err := json.Unmarshal(productsJSON, &c.Products); err != nil {
		return nil, fmt.Errorf("failed to parse product catalog: %w", err)
	}
	if err := json.Unmarshal(regionalFoodsJSON, &c.RegionalFoods); err != nil {
		return nil, fmt.Errorf("failed to parse regional food catalog: %w", err)
	}
	return c, nil
}

// TopProducts returns at most n products in catalog order.
func (c *Catalog) TopProducts(n int) []Product {
	return head(c.Products, n)
}

// TopRegionalFoods returns at most n foods in catalog order.
func (c *Catalog) TopRegionalFoods(n int) []RegionalFood {
	return head(c.RegionalFoods, n)
}

func head[T any](items []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n > len(items) {
		n = len(items)
	}
	return items[:n:n]
}
