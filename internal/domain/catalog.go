package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category описывает категорию каталога.
type Category struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`
}

// Product — товар каталога. Для заказов используется только на чтение.
type Product struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	Description  string          `yaml:"description"`
	Price        decimal.Decimal `yaml:"price"`
	CategoryID   string          `yaml:"category"`
	CountInStock int             `yaml:"count_in_stock"`
	IsFeatured   bool            `yaml:"is_featured"`
	CreatedAt    time.Time       `yaml:"created_at"`
}

// UserRef — то, что заказ раскрывает о пользователе: идентификатор и имя.
type UserRef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CatalogSeed — начальные данные каталога и пользователей.
type CatalogSeed struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
	Users      []UserRef  `yaml:"users"`
}
