package maintenance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltano/fieldservice/maintenance"
)

func oilFilter() maintenance.InventoryItem {
	return maintenance.InventoryItem{
		ID:        "item-oil-filter",
		Name:      "Oil filter",
		UnitPrice: maintenance.MustParseMoney("45.90"),
		Stock:     10,
	}
}

func fuelFilter() maintenance.InventoryItem {
	return maintenance.InventoryItem{
		ID:        "item-fuel-filter",
		Name:      "Fuel filter",
		UnitPrice: maintenance.MustParseMoney("62.00"),
		Stock:     4,
	}
}

func TestPartsLedger_AddPart_CapturesPriceAtAddTime(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "45.90", lines[0].UnitPrice.String())
}

func TestPartsLedger_AddPart_EmptySelectionIgnored(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(maintenance.InventoryItem{})
	assert.Equal(t, 0, l.Len())
}

func TestPartsLedger_ChangeQuantity_FloorsAtOne(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())

	l.ChangeQuantity(0, 2)
	assert.Equal(t, 3, l.Lines()[0].Quantity)

	// An oversized reduction clamps to 1; a line never empties this way.
	l.ChangeQuantity(0, -10)
	assert.Equal(t, 1, l.Lines()[0].Quantity)

	// A quantity-1 line reduced again stays at 1.
	l.ChangeQuantity(0, -1)
	assert.Equal(t, 1, l.Lines()[0].Quantity)
}

func TestPartsLedger_ChangeQuantity_BadIndexIgnored(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())

	l.ChangeQuantity(-1, 1)
	l.ChangeQuantity(5, 1)
	assert.Equal(t, 1, l.Lines()[0].Quantity)
}

func TestPartsLedger_TwoPhaseRemoval(t *testing.T) {
	// GIVEN: Two lines, removal requested on the first
	// WHEN: Confirming
	// THEN: Only the first line is gone and the pending index is cleared

	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())
	l.AddPart(fuelFilter())

	l.RequestRemoval(0)
	assert.Equal(t, 0, l.PendingRemoval())

	l.ConfirmRemoval()
	assert.Equal(t, -1, l.PendingRemoval())
	require.Equal(t, 1, l.Len())
	assert.Equal(t, maintenance.ItemID("item-fuel-filter"), l.Lines()[0].ItemID)
}

func TestPartsLedger_CancelRemoval_KeepsLine(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())

	l.RequestRemoval(0)
	l.CancelRemoval()

	assert.Equal(t, -1, l.PendingRemoval())
	assert.Equal(t, 1, l.Len())

	// Confirm after cancel must not delete anything.
	l.ConfirmRemoval()
	assert.Equal(t, 1, l.Len())
}

func TestPartsLedger_SecondRequestReplacesPending(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())
	l.AddPart(fuelFilter())

	l.RequestRemoval(0)
	l.RequestRemoval(1)
	assert.Equal(t, 1, l.PendingRemoval())

	l.ConfirmRemoval()
	require.Equal(t, 1, l.Len())
	assert.Equal(t, maintenance.ItemID("item-oil-filter"), l.Lines()[0].ItemID)
}

func TestPartsLedger_TotalCost_Recomputed(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())  // 45.90
	l.AddPart(fuelFilter()) // 62.00
	l.ChangeQuantity(0, 1)  // 2 x 45.90

	assert.Equal(t, "153.80", l.TotalCost().String())

	l.RequestRemoval(1)
	l.ConfirmRemoval()
	assert.Equal(t, "91.80", l.TotalCost().String())
}

func TestPartsLedger_EmptyTotalIsZero(t *testing.T) {
	l := maintenance.NewPartsLedger()
	assert.True(t, l.TotalCost().IsZero())
}

func TestPartsLedger_LinesReturnsCopy(t *testing.T) {
	l := maintenance.NewPartsLedger()
	l.AddPart(oilFilter())

	lines := l.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, l.Lines()[0].Quantity)
}
