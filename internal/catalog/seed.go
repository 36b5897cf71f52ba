// Package catalog загружает начальные данные каталога и пользователей из YAML.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// LoadSeed читает seed-файл по пути path.
func LoadSeed(path string) (domain.CatalogSeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.CatalogSeed{}, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()

	seed, err := ParseSeed(f)
	if err != nil {
		return domain.CatalogSeed{}, fmt.Errorf("catalog seed %s: %w", path, err)
	}
	return seed, nil
}

// ParseSeed разбирает YAML и проверяет уникальность идентификаторов и цены.
// Неизвестные поля считаются ошибкой.
func ParseSeed(r io.Reader) (domain.CatalogSeed, error) {
	var seed domain.CatalogSeed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return domain.CatalogSeed{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := validate(seed); err != nil {
		return domain.CatalogSeed{}, err
	}
	return seed, nil
}

func validate(seed domain.CatalogSeed) error {
	var errs []error

	categories := make(map[string]struct{}, len(seed.Categories))
	for i, c := range seed.Categories {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("categories[%d]: id is required", i))
			continue
		}
		if _, dup := categories[c.ID]; dup {
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate id %q", i, c.ID))
		}
		categories[c.ID] = struct{}{}
	}

	products := make(map[string]struct{}, len(seed.Products))
	for i, p := range seed.Products {
		switch {
		case p.ID == "":
			errs = append(errs, fmt.Errorf("products[%d]: id is required", i))
			continue
		case p.Price.IsNegative():
			errs = append(errs, fmt.Errorf("products[%d]: price of %q is negative", i, p.ID))
		}
		if _, dup := products[p.ID]; dup {
			errs = append(errs, fmt.Errorf("products[%d]: duplicate id %q", i, p.ID))
		}
		products[p.ID] = struct{}{}
	}

	users := make(map[string]struct{}, len(seed.Users))
	for i, u := range seed.Users {
		if u.ID == "" {
			errs = append(errs, fmt.Errorf("users[%d]: id is required", i))
			continue
		}
		if _, dup := users[u.ID]; dup {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate id %q", i, u.ID))
		}
		users[u.ID] = struct{}{}
	}

	return errors.Join(errs...)
}
