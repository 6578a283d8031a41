package ascvd

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

// Assessment maps to the ascvd_assessment table: one successful
// calculation together with the inputs it was computed from.
type Assessment struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	PatientID           string    `db:"patient_id" json:"patient_id"`
	PatientScore        float64   `db:"patient_score" json:"patient_score"`
	HealthyScore        float64   `db:"healthy_score" json:"healthy_score"`
	Sex                 Sex       `db:"sex" json:"sex"`
	Race                Race      `db:"race" json:"race"`
	Age                 int       `db:"age" json:"age"`
	TotalCholesterol    float64   `db:"total_cholesterol" json:"total_cholesterol"`
	HDLCholesterol      float64   `db:"hdl_cholesterol" json:"hdl_cholesterol"`
	SystolicBP          float64   `db:"systolic_bp" json:"systolic_bp"`
	Smoking             int       `db:"smoking_category" json:"smoking_category"`
	Diabetic            bool      `db:"diabetic" json:"diabetic"`
	TreatedHypertension bool      `db:"treated_hypertension" json:"treated_hypertension"`
	CalculatedAt        time.Time `db:"calculated_at" json:"calculated_at"`
}

// NewAssessment records a result and the observations it was computed from.
func NewAssessment(patientID string, obs Observations, res Result, at time.Time) *Assessment {
	return &Assessment{
		PatientID:           patientID,
		PatientScore:        res.PatientScore,
		HealthyScore:        res.HealthyScore,
		Sex:                 obs.Sex,
		Race:                obs.Race,
		Age:                 obs.Age,
		TotalCholesterol:    obs.TotalCholesterol,
		HDLCholesterol:      obs.HDLCholesterol,
		SystolicBP:          obs.SystolicBP,
		Smoking:             int(obs.Smoking),
		Diabetic:            obs.Diabetic,
		TreatedHypertension: obs.TreatedHypertension,
		CalculatedAt:        at,
	}
}

// ToFHIR renders the assessment as a FHIR RiskAssessment resource.
func (a *Assessment) ToFHIR() map[string]interface{} {
	prediction := map[string]interface{}{
		"outcome": fhir.CodeableConcept{
			Text: "10-year atherosclerotic cardiovascular disease event",
		},
		"probabilityDecimal": a.PatientScore / 100,
		"whenPeriod": map[string]interface{}{
			"start": a.CalculatedAt.Format(time.RFC3339),
			"end":   a.CalculatedAt.AddDate(10, 0, 0).Format(time.RFC3339),
		},
	}
	if a.HealthyScore > 0 {
		prediction["relativeRisk"] = a.PatientScore / a.HealthyScore
	}
	return map[string]interface{}{
		"resourceType": "RiskAssessment",
		"id":           a.ID.String(),
		"status":       "final",
		"method": fhir.CodeableConcept{
			Text: "ACC/AHA Pooled Cohort Equations (2013)",
		},
		"subject":            fhir.Reference{Reference: fhir.FormatReference("Patient", a.PatientID)},
		"occurrenceDateTime": a.CalculatedAt.Format(time.RFC3339),
		"prediction":         []interface{}{prediction},
	}
}

// AssessmentRepository stores the history of calculated scores.
type AssessmentRepository interface {
	Create(ctx context.Context, a *Assessment) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Assessment, int, error)
}
