package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommytrillva/memecoinbot/internal/order"
)

func TestBookApplyFill(t *testing.T) {
	b := NewBook()
	assert.Equal(t, 0, b.Count())

	assert.Equal(t, 4.0, b.ApplyFill(order.Order{Symbol: "SOL", Quantity: 4, Side: order.SideBuy}))
	assert.Equal(t, 1.5, b.ApplyFill(order.Order{Symbol: "SOL", Quantity: 2.5, Side: order.SideSell}))
	assert.Equal(t, -2.0, b.ApplyFill(order.Order{Symbol: "BONK", Quantity: 2, Side: order.SideSell}))

	assert.Equal(t, 1.5, b.Position("SOL"))
	assert.Equal(t, -2.0, b.Position("BONK"))
	assert.Equal(t, 0.0, b.Position("WIF"))
	assert.Equal(t, []string{"BONK", "SOL"}, b.Symbols())
}

func TestBookExposureUsesMarkPrice(t *testing.T) {
	b := NewBook()
	b.ApplyFill(order.Order{Symbol: "SOL", Quantity: 3, Side: order.SideBuy})
	b.ApplyFill(order.Order{Symbol: "BONK", Quantity: 10, Side: order.SideSell})
	assert.Equal(t, 0.0, b.Exposure(), "unknown marks contribute nothing")

	b.SetMarkPrice("SOL", 25)
	b.SetMarkPrice("BONK", 0.5)
	assert.InDelta(t, 80.0, b.Exposure(), 1e-9)
	assert.InDelta(t, 5.0, b.Notional("BONK"), 1e-9)
}

func TestBookSnapshotSorted(t *testing.T) {
	b := NewBook()
	b.ApplyFill(order.Order{Symbol: "ZED", Quantity: 1, Side: order.SideBuy})
	b.ApplyFill(order.Order{Symbol: "ABC", Quantity: 2, Side: order.SideBuy})
	b.SetMarkPrice("ABC", 3)

	snap := b.Snapshot()
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, "ABC", snap.Positions[0].Symbol)
	assert.Equal(t, 6.0, snap.Positions[0].Notional)
	assert.Equal(t, "ZED", snap.Positions[1].Symbol)
	assert.Equal(t, 6.0, snap.Exposure)
	assert.NotZero(t, snap.Timestamp)

	entry := b.Entry("NONE")
	assert.Equal(t, PositionEntry{Symbol: "NONE"}, entry)
}
