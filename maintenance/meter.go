package maintenance

// =============================================================================
// METER MONOTONICITY - A horimeter never runs backwards
// =============================================================================

// CheckMeter accepts a proposed horimeter reading iff proposed >= current.
// Exact ties are accepted; comparison is exact decimal ordering with no
// epsilon tolerance.
//
// The check runs twice: once at input time for interactive feedback, and
// again at commit time against a fresh equipment read, since another job may
// have advanced the meter between form load and submission. The commit-time
// check is the authoritative one.
func CheckMeter(equipmentID EquipmentID, current, proposed Hours) error {
	if proposed.Value.IsNegative() {
		return ErrInvalidMeterReading
	}
	if proposed.LessThan(current) {
		return &MeterRegressionError{
			EquipmentID: equipmentID,
			Current:     current,
			Proposed:    proposed,
		}
	}
	return nil
}
