/*
checklist.go - Inspection checklist catalogs and normalization

PURPOSE:
  The on-site checklist has two halves: boolean inspection items (checked or
  not) and free-form measurement items (a value typed by the technician).
  Both halves come from fixed catalogs; anything outside the catalog is
  rejected rather than silently stored.

  The horimeter reading is the one mandatory measurement: a report cannot be
  assembled without it, and its value must pass the meter monotonicity check
  before acceptance.

NORMALIZATION CONTRACT:
  NormalizeChecklist(selected, values) pairs the catalog definitions with
  user-provided state:
  - unknown keys (either half)        -> UnknownChecklistKeyError
  - missing optional measurement keys -> simply absent from the output
  - missing horimeter                 -> MissingFieldError
  - measurement output preserves catalog declaration order
  - no ordering guarantee on the boolean-item set

SEE ALSO:
  - meter.go: validation of the horimeter value itself
  - report.go: commit-time re-validation against the stored meter
*/
package maintenance

import "sort"

// =============================================================================
// CATALOGS - Fixed, enumerated checklist items
// =============================================================================

type ChecklistItem struct {
	Key   string
	Label string
}

// CheckItems are the boolean inspection items.
var CheckItems = []ChecklistItem{
	{Key: "coolant_level", Label: "Check and correct coolant level"},
	{Key: "leak_inspection", Label: "Inspect for fluid leaks"},
	{Key: "belt_tension", Label: "Check belt tension and wear"},
	{Key: "battery_terminals", Label: "Clean and tighten battery terminals"},
	{Key: "air_filter", Label: "Inspect or replace air filter"},
	{Key: "fuel_filter", Label: "Inspect or replace fuel filter"},
	{Key: "oil_change", Label: "Change lubricant oil and filter"},
	{Key: "panel_indicators", Label: "Check control panel indicators"},
}

// MeasurementItems are the free-form measurement items, in declaration
// order. MeasurementHorimeter is mandatory on every report.
var MeasurementItems = []ChecklistItem{
	{Key: MeasurementHorimeter, Label: "Horimeter reading (h)"},
	{Key: "coolant_temp", Label: "Coolant temperature (C)"},
	{Key: "oil_pressure", Label: "Oil pressure (bar)"},
	{Key: "battery_voltage", Label: "Battery voltage (V)"},
	{Key: "load_percent", Label: "Load at test (%)"},
}

const MeasurementHorimeter = "horimeter"

var (
	checkItemKeys       = keySet(CheckItems)
	measurementItemKeys = keySet(MeasurementItems)
)

func keySet(items []ChecklistItem) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it.Key] = true
	}
	return s
}

// =============================================================================
// CHECKLIST REPORT - Normalized per-visit snapshot
// =============================================================================

// Measurement pairs a measurement key with the value the technician entered.
type Measurement struct {
	Key   string
	Value string
}

// ChecklistReport is the normalized checklist snapshot stored on a report.
// Selected is kept sorted for stable serialization; Measurements follow
// catalog declaration order.
type ChecklistReport struct {
	Selected     []string
	Measurements []Measurement
	Horimeter    Hours // parsed mandatory reading
}

// NormalizeChecklist validates the submitted selections and measurement
// values against the catalogs and produces the normalized snapshot.
func NormalizeChecklist(selected []string, values map[string]string) (ChecklistReport, error) {
	var out ChecklistReport

	seen := make(map[string]bool, len(selected))
	for _, key := range selected {
		if !checkItemKeys[key] {
			return ChecklistReport{}, &UnknownChecklistKeyError{Key: key}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Selected = append(out.Selected, key)
	}
	sort.Strings(out.Selected)

	for key := range values {
		if !measurementItemKeys[key] {
			return ChecklistReport{}, &UnknownChecklistKeyError{Key: key}
		}
	}

	// Flatten in catalog declaration order; optional blanks are dropped.
	for _, item := range MeasurementItems {
		v, ok := values[item.Key]
		if !ok || v == "" {
			continue
		}
		out.Measurements = append(out.Measurements, Measurement{Key: item.Key, Value: v})
	}

	raw, ok := values[MeasurementHorimeter]
	if !ok || raw == "" {
		return ChecklistReport{}, &MissingFieldError{Field: MeasurementHorimeter}
	}
	horimeter, err := ParseHours(raw)
	if err != nil {
		return ChecklistReport{}, err
	}
	out.Horimeter = horimeter

	return out, nil
}
