package ascvd

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

func TestNewAssessment(t *testing.T) {
	obs := Observations{
		Age: 62, Sex: SexFemale, Race: RaceBlack,
		TotalCholesterol: 190, HDLCholesterol: 44, SystolicBP: 138,
		Smoking: SmokingHeavy, TreatedHypertension: true,
	}
	a := NewAssessment("p9", obs, Result{PatientScore: 14.2, HealthyScore: 2.4}, asOf)

	if a.ID != uuid.Nil {
		t.Error("expected ID to be assigned on create")
	}
	if a.PatientID != "p9" || a.Smoking != 4 || !a.TreatedHypertension || a.Diabetic {
		t.Errorf("unexpected assessment: %+v", a)
	}
	if a.PatientScore != 14.2 || a.HealthyScore != 2.4 || !a.CalculatedAt.Equal(asOf) {
		t.Errorf("unexpected scores: %+v", a)
	}
}

func TestAssessment_ToFHIR(t *testing.T) {
	a := &Assessment{
		ID:           uuid.MustParse("0b8f1d2c-3e4f-4a5b-9c6d-7e8f90a1b2c3"),
		PatientID:    "p1",
		PatientScore: 10,
		HealthyScore: 4,
		CalculatedAt: asOf,
	}
	r := a.ToFHIR()

	if r["resourceType"] != "RiskAssessment" || r["status"] != "final" {
		t.Errorf("unexpected header: %v", r)
	}
	if r["id"] != "0b8f1d2c-3e4f-4a5b-9c6d-7e8f90a1b2c3" {
		t.Errorf("id = %v", r["id"])
	}
	if subject := r["subject"].(fhir.Reference); subject.Reference != "Patient/p1" {
		t.Errorf("subject = %v", subject)
	}
	if r["occurrenceDateTime"] != "2024-06-15T12:00:00Z" {
		t.Errorf("occurrenceDateTime = %v", r["occurrenceDateTime"])
	}

	predictions := r["prediction"].([]interface{})
	if len(predictions) != 1 {
		t.Fatalf("expected one prediction, got %d", len(predictions))
	}
	p := predictions[0].(map[string]interface{})
	if p["probabilityDecimal"] != 0.1 {
		t.Errorf("probabilityDecimal = %v", p["probabilityDecimal"])
	}
	if p["relativeRisk"] != 2.5 {
		t.Errorf("relativeRisk = %v", p["relativeRisk"])
	}
	period := p["whenPeriod"].(map[string]interface{})
	if period["end"] != "2034-06-15T12:00:00Z" {
		t.Errorf("whenPeriod.end = %v", period["end"])
	}
}

func TestAssessment_ToFHIR_NoRelativeRiskWithoutHealthyScore(t *testing.T) {
	a := &Assessment{PatientID: "p1", PatientScore: 3, CalculatedAt: asOf}
	p := a.ToFHIR()["prediction"].([]interface{})[0].(map[string]interface{})
	if _, ok := p["relativeRisk"]; ok {
		t.Error("relativeRisk set without a healthy score")
	}
}
