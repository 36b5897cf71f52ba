package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleSeed = `
categories:
  - id: cat-books
    name: Books
    icon: book
    color: "#3366ff"
products:
  - id: prod-go
    name: The Go Programming Language
    price: 39.90
    category: cat-books
    count_in_stock: 12
    is_featured: true
  - id: prod-mug
    name: Gopher Mug
    price: "12.5"
users:
  - id: user-1
    name: Ann
`

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)

	require.Len(t, seed.Categories, 1)
	require.Equal(t, "#3366ff", seed.Categories[0].Color)

	require.Len(t, seed.Products, 2)
	require.True(t, decimal.RequireFromString("39.90").Equal(seed.Products[0].Price))
	require.Equal(t, "cat-books", seed.Products[0].CategoryID)
	require.Equal(t, 12, seed.Products[0].CountInStock)
	require.True(t, seed.Products[0].IsFeatured)
	require.True(t, decimal.RequireFromString("12.5").Equal(seed.Products[1].Price))

	require.Equal(t, "Ann", seed.Users[0].Name)
}

func TestParseSeed_Empty(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, seed.Products)
}

func TestParseSeed_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":      "products:\n  - id: p1\n    colour: red\n",
		"duplicate product":  "products:\n  - id: p1\n  - id: p1\n",
		"negative price":     "products:\n  - id: p1\n    price: -1\n",
		"missing user id":    "users:\n  - name: Ann\n",
		"duplicate category": "categories:\n  - id: c\n  - id: c\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeed), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Products, 2)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadSeed_RepositorySample(t *testing.T) {
	seed, err := LoadSeed(filepath.Join("..", "..", "configs", "catalog.seed.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, seed.Products)
	require.NotEmpty(t, seed.Users)
}
