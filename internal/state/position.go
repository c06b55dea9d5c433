package state

import (
	"math"
	"sort"

	"github.com/tommytrillva/memecoinbot/internal/order"
)

// Book holds positions and mark prices per symbol.
// It is not safe for concurrent use; the owner serialises access.
type Book struct {
	positions map[string]float64
	marks     map[string]float64
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		positions: make(map[string]float64),
		marks:     make(map[string]float64),
	}
}

// ApplyFill updates the position of the order's symbol and returns the new quantity.
// The position entry is created on the first fill.
func (b *Book) ApplyFill(o order.Order) float64 {
	next := b.positions[o.Symbol] + o.SignedQuantity()
	b.positions[o.Symbol] = next
	return next
}

// SetMarkPrice overwrites the last observed price of a symbol.
func (b *Book) SetMarkPrice(symbol string, price float64) {
	b.marks[symbol] = price
}

// Position returns the current signed quantity for a symbol.
func (b *Book) Position(symbol string) float64 {
	return b.positions[symbol]
}

// MarkPrice returns the last observed price, 0 when unknown.
func (b *Book) MarkPrice(symbol string) float64 {
	return b.marks[symbol]
}

// Notional returns |position * mark| of one symbol.
func (b *Book) Notional(symbol string) float64 {
	return math.Abs(b.positions[symbol] * b.marks[symbol])
}

// Exposure sums the notional of every position.
func (b *Book) Exposure() float64 {
	var total float64
	for symbol := range b.positions {
		total += b.Notional(symbol)
	}
	return total
}

// Symbols returns every symbol holding a position entry, sorted.
func (b *Book) Symbols() []string {
	symbols := make([]string, 0, len(b.positions))
	for symbol := range b.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Count returns the number of tracked symbols.
func (b *Book) Count() int {
	return len(b.positions)
}
