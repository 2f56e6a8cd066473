package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalogs(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, c.Products)
	require.NotEmpty(t, c.RegionalFoods)

	for _, p := range c.Products {
		assert.NotEmpty(t, p.Name)
		assert.GreaterOrEqual(t, p.Calories, 0.0)
	}
}

func TestTopTruncates(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.TopProducts(15), 15)
	assert.Equal(t, c.Products[0], c.TopProducts(1)[0])
	assert.Len(t, c.TopProducts(1000), len(c.Products))
	assert.Empty(t, c.TopProducts(0))
	assert.Len(t, c.TopRegionalFoods(20), 20)
}

func TestTopDoesNotAliasCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	top := c.TopProducts(2)
	top = append(top, Product{Name: "extra"})
	assert.NotEqual(t, "extra", c.Products[2].Name)
}
