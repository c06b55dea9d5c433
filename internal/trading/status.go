package trading

import "github.com/shopspring/decimal"

const (
	statusPortfolio   = "Portfolio status"
	statusNoPositions = "No open positions."
)

// Status renders one symbol's position, or the whole book when symbol is empty.
func (e *Engine) Status(symbol string) StatusReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	if symbol != "" {
		entry := e.book.Entry(symbol)
		return StatusReport{
			Summary:   "Status for " + symbol,
			Positions: []string{positionLine(symbol, entry.Qty)},
			Exposure:  entry.Notional,
		}
	}

	report := StatusReport{
		Summary:  statusPortfolio,
		Exposure: e.book.Exposure(),
	}
	symbols := e.book.Symbols()
	if len(symbols) == 0 {
		report.Positions = []string{statusNoPositions}
		return report
	}
	report.Positions = make([]string, 0, len(symbols))
	for _, s := range symbols {
		report.Positions = append(report.Positions, positionLine(s, e.book.Position(s)))
	}
	return report
}

func positionLine(symbol string, qty float64) string {
	return symbol + ": " + decimal.NewFromFloat(qty).StringFixed(4)
}
