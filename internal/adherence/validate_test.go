package adherence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEvent(t *testing.T) {
	val := NewValidator()
	scheduled := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		event     AdherenceEvent
		wantField string
	}{
		{
			name: "valid taken event",
			event: AdherenceEvent{
				PatientID:    "p-001",
				MedicationID: "med-001",
				ScheduledAt:  scheduled,
				TakenAt:      &scheduled,
			},
		},
		{
			name: "valid missed dose",
			event: AdherenceEvent{
				PatientID:    "p-001",
				MedicationID: "med-001",
				ScheduledAt:  scheduled,
			},
		},
		{
			name: "missing patient id",
			event: AdherenceEvent{
				MedicationID: "med-001",
				ScheduledAt:  scheduled,
			},
			wantField: "patient_id",
		},
		{
			name: "missing medication id",
			event: AdherenceEvent{
				PatientID:   "p-001",
				ScheduledAt: scheduled,
			},
			wantField: "medication_id",
		},
		{
			name: "zero scheduled timestamp",
			event: AdherenceEvent{
				PatientID:    "p-001",
				MedicationID: "med-001",
			},
			wantField: "scheduled_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := val.Validate(tt.event)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
			assert.Equal(t, "is required", verr.Fields[tt.wantField])
		})
	}
}

func TestValidateReportsEveryBadField(t *testing.T) {
	val := NewValidator()

	err := val.Validate(AdherenceEvent{})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
	assert.Contains(t, verr.Fields, "patient_id")
	assert.Contains(t, verr.Fields, "medication_id")
	assert.Contains(t, verr.Fields, "scheduled_at")
}

func TestValidatePatientAgeBounds(t *testing.T) {
	val := NewValidator()

	err := val.Validate(Patient{PatientID: "p-001", Age: 45})
	assert.NoError(t, err)

	err = val.Validate(Patient{PatientID: "p-001", Age: 300})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be at most 130", verr.Fields["age"])
}

func TestValidateMedication(t *testing.T) {
	val := NewValidator()

	err := val.Validate(Medication{
		MedicationID: "med-001",
		PatientID:    "p-001",
		DrugName:     "Lisinopril",
	})
	assert.NoError(t, err)

	err = val.Validate(Medication{MedicationID: "med-001", PatientID: "p-001"})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "drug_name")
}
