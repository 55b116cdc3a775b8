package models

import "github.com/uptrace/bun"

// Product belongs to exactly one city. Price is a whole amount in the shop
// currency.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	City        string `bun:"city,notnull" json:"city"`
	Name        string `bun:"name,notnull" json:"name"`
	Variant     string `bun:"variant,notnull" json:"variant"`
	Price       int64  `bun:"price,notnull" json:"price"`
	Description string `bun:"description,notnull" json:"description"`
}
