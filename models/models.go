package models

import "github.com/shopspring/decimal"

func init() {
	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&Table{},
		&Session{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&DBChange{},
	}
}
