// internal/storage/storage.go
package storage

// Positions is the durable record of pairs that already have a confirmed swap.
type Positions interface {
	Has(pair string) bool
	Add(pair string) error
}
