package maintenance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltano/fieldservice/maintenance"
)

func TestNormalizeChecklist_HappyPath(t *testing.T) {
	// GIVEN: Valid selections and measurements
	// WHEN: Normalizing
	// THEN: Selected is sorted+deduped, measurements follow catalog order

	cl, err := maintenance.NormalizeChecklist(
		[]string{"oil_change", "coolant_level", "oil_change"},
		map[string]string{
			"battery_voltage": "13.8",
			"horimeter":       "1250.5",
			"coolant_temp":    "82",
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"coolant_level", "oil_change"}, cl.Selected)

	keys := make([]string, 0, len(cl.Measurements))
	for _, m := range cl.Measurements {
		keys = append(keys, m.Key)
	}
	// horimeter, coolant_temp, battery_voltage is the catalog order,
	// regardless of map iteration.
	assert.Equal(t, []string{"horimeter", "coolant_temp", "battery_voltage"}, keys)
	assert.Equal(t, "1250.5", cl.Horimeter.String())
}

func TestNormalizeChecklist_UnknownCheckKey_Rejected(t *testing.T) {
	_, err := maintenance.NormalizeChecklist(
		[]string{"oil_change", "flux_capacitor"},
		map[string]string{"horimeter": "100"},
	)
	assert.ErrorIs(t, err, maintenance.ErrUnknownChecklistKey)

	var keyErr *maintenance.UnknownChecklistKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "flux_capacitor", keyErr.Key)
}

func TestNormalizeChecklist_UnknownMeasurementKey_Rejected(t *testing.T) {
	_, err := maintenance.NormalizeChecklist(
		nil,
		map[string]string{"horimeter": "100", "warp_level": "9"},
	)
	assert.ErrorIs(t, err, maintenance.ErrUnknownChecklistKey)
}

func TestNormalizeChecklist_MissingHorimeter_Rejected(t *testing.T) {
	_, err := maintenance.NormalizeChecklist(
		[]string{"oil_change"},
		map[string]string{"coolant_temp": "82"},
	)
	assert.ErrorIs(t, err, maintenance.ErrMissingRequiredField)

	// A blank horimeter is the same as an absent one.
	_, err = maintenance.NormalizeChecklist(nil, map[string]string{"horimeter": ""})
	assert.ErrorIs(t, err, maintenance.ErrMissingRequiredField)
}

func TestNormalizeChecklist_BadHorimeterValue_Rejected(t *testing.T) {
	_, err := maintenance.NormalizeChecklist(nil, map[string]string{"horimeter": "lots"})
	assert.ErrorIs(t, err, maintenance.ErrInvalidMeterReading)
}

func TestNormalizeChecklist_OptionalBlanksDropped(t *testing.T) {
	cl, err := maintenance.NormalizeChecklist(
		nil,
		map[string]string{"horimeter": "100", "oil_pressure": ""},
	)
	require.NoError(t, err)
	require.Len(t, cl.Measurements, 1)
	assert.Equal(t, "horimeter", cl.Measurements[0].Key)
}

func TestNormalizeChecklist_EmptySelectionAllowed(t *testing.T) {
	// Nothing checked is a valid visit, as long as the meter was read.
	cl, err := maintenance.NormalizeChecklist(nil, map[string]string{"horimeter": "100"})
	require.NoError(t, err)
	assert.Empty(t, cl.Selected)
}
