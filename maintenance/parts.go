/*
parts.go - Parts-usage ledger for one visit

PURPOSE:
  Tracks the inventory items a technician marks as consumed while a job is
  in progress: add lines, adjust quantities, and remove lines through an
  explicit two-phase confirmation.

TWO-PHASE REMOVAL:
  Removing a line never happens silently. RequestRemoval records a single
  pending index ("awaiting confirmation"), ConfirmRemoval deletes that line
  and clears the index, CancelRemoval clears the index without deleting.
  The pending index is one optional field, so "at most one pending removal"
  is structurally enforced.

PRICING:
  A line captures the item's unit price at the moment the part is added.
  TotalCost is a pure recomputation over the committed lines; it is never
  cached, so it cannot go stale.

SEE ALSO:
  - report.go: consumed lines flow into the assembled report
  - store.go: stock decrement is an external effect, applied after assembly
*/
package maintenance

// PartsLedger accumulates part-usage lines for a single job.
// Not safe for concurrent use; callers serialize access per job.
type PartsLedger struct {
	lines          []PartUsageLine
	pendingRemoval *int
}

// NewPartsLedger returns an empty ledger.
func NewPartsLedger() *PartsLedger {
	return &PartsLedger{}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddPart appends a quantity-1 line at the item's current catalog price.
// An empty selection (zero-value item ref) is ignored, not an error: this
// models an Add button that is disabled until a part is chosen.
func (l *PartsLedger) AddPart(item InventoryItem) {
	if item.ID == "" {
		return
	}
	l.lines = append(l.lines, PartUsageLine{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  1,
	})
}

// ChangeQuantity adjusts a line's quantity by delta. The result is clamped
// at 1: a reduction can never empty or remove a line, only the removal flow
// can. Out-of-range indexes are ignored. Stock limits are not enforced here;
// that is a commit-time concern.
func (l *PartsLedger) ChangeQuantity(index, delta int) {
	if index < 0 || index >= len(l.lines) {
		return
	}
	next := l.lines[index].Quantity + delta
	if next < 1 {
		next = 1
	}
	l.lines[index].Quantity = next
}

// RequestRemoval marks one line as awaiting removal confirmation. A second
// request replaces the pending index; there is never more than one.
func (l *PartsLedger) RequestRemoval(index int) {
	if index < 0 || index >= len(l.lines) {
		return
	}
	i := index
	l.pendingRemoval = &i
}

// ConfirmRemoval deletes the pending line and clears the pending index.
// With no pending removal it is a no-op.
func (l *PartsLedger) ConfirmRemoval() {
	if l.pendingRemoval == nil {
		return
	}
	i := *l.pendingRemoval
	l.pendingRemoval = nil
	if i < 0 || i >= len(l.lines) {
		return
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
}

// CancelRemoval clears the pending index without deleting anything.
func (l *PartsLedger) CancelRemoval() {
	l.pendingRemoval = nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Lines returns a copy of the committed lines.
func (l *PartsLedger) Lines() []PartUsageLine {
	out := make([]PartUsageLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// PendingRemoval returns the index awaiting confirmation, or -1.
func (l *PartsLedger) PendingRemoval() int {
	if l.pendingRemoval == nil {
		return -1
	}
	return *l.pendingRemoval
}

// TotalCost is the sum of unitPrice x quantity over all committed lines,
// recomputed on every call.
func (l *PartsLedger) TotalCost() Money {
	total := ZeroMoney()
	for _, line := range l.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Len returns the number of committed lines.
func (l *PartsLedger) Len() int { return len(l.lines) }
