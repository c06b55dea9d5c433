package state

import "time"

// Snapshot captures positions at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Exposure  float64         `json:"exposure"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is a single symbol position entry.
type PositionEntry struct {
	Symbol    string  `json:"symbol"`
	Qty       float64 `json:"qty"`
	MarkPrice float64 `json:"markPrice"`
	Notional  float64 `json:"notional"`
}

// Snapshot builds a snapshot of every position, sorted by symbol.
func (b *Book) Snapshot() Snapshot {
	symbols := b.Symbols()
	entries := make([]PositionEntry, 0, len(symbols))
	var exposure float64
	for _, symbol := range symbols {
		notional := b.Notional(symbol)
		exposure += notional
		entries = append(entries, PositionEntry{
			Symbol:    symbol,
			Qty:       b.positions[symbol],
			MarkPrice: b.marks[symbol],
			Notional:  notional,
		})
	}
	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		Exposure:  exposure,
		Positions: entries,
	}
}

// Entry returns the entry of one symbol, zero-valued when the symbol never filled.
func (b *Book) Entry(symbol string) PositionEntry {
	return PositionEntry{
		Symbol:    symbol,
		Qty:       b.positions[symbol],
		MarkPrice: b.marks[symbol],
		Notional:  b.Notional(symbol),
	}
}
