package ascvd

import (
	"encoding/json"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

// Prefetch keys requested by the CDS service.
const (
	PrefetchPatient           = "patient"
	PrefetchTotalCholesterol  = "totalCholesterol"
	PrefetchHDL               = "hdl"
	PrefetchBloodPressure     = "bloodPressure"
	PrefetchSmoking           = "smoking"
	PrefetchEthnicity         = "ethnicity"
	PrefetchDiabetesType1     = "diabetesType1"
	PrefetchDiabetesType2     = "diabetesType2"
	PrefetchAntihypertensives = "antihypertensives"
)

// Statuses that mean a resource no longer describes the patient.
var (
	excludedObservationStatus  = mapset.NewSet[string]("entered-in-error", "cancelled")
	excludedClinicalStatus     = mapset.NewSet[string]("inactive", "resolved", "remission")
	excludedVerificationStatus = mapset.NewSet[string]("refuted", "entered-in-error")
	excludedMedicationStatus   = mapset.NewSet[string]("stopped", "entered-in-error", "not-taken", "completed")
)

// RecordsFromPrefetch decodes CDS Hooks prefetch values into Records. Each
// value may be a single resource or a searchset Bundle; absent keys leave
// the corresponding input empty. Resources that were entered in error or no
// longer apply are dropped.
func RecordsFromPrefetch(prefetch map[string]json.RawMessage) (Records, error) {
	var rec Records
	var err error

	if rec.Patient, err = fhir.DecodeResource[fhir.Patient](prefetch[PrefetchPatient]); err != nil {
		return rec, prefetchErr(PrefetchPatient, err)
	}

	observations := []struct {
		key    string
		target *[]fhir.Observation
	}{
		{PrefetchTotalCholesterol, &rec.TotalCholesterol},
		{PrefetchHDL, &rec.HDLCholesterol},
		{PrefetchBloodPressure, &rec.BloodPressure},
		{PrefetchSmoking, &rec.SmokingStatus},
		{PrefetchEthnicity, &rec.Ethnicity},
	}
	for _, o := range observations {
		items, err := fhir.DecodeResources[fhir.Observation](prefetch[o.key])
		if err != nil {
			return rec, prefetchErr(o.key, err)
		}
		*o.target = currentObservations(items)
	}
	rec.BloodPressure = bloodPressureObservations(rec.BloodPressure)

	for key, target := range map[string]*[]fhir.Condition{
		PrefetchDiabetesType1: &rec.Type1Diabetes,
		PrefetchDiabetesType2: &rec.Type2Diabetes,
	} {
		items, err := fhir.DecodeResources[fhir.Condition](prefetch[key])
		if err != nil {
			return rec, prefetchErr(key, err)
		}
		*target = activeConditions(items)
	}

	meds, err := fhir.DecodeResources[fhir.MedicationStatement](prefetch[PrefetchAntihypertensives])
	if err != nil {
		return rec, prefetchErr(PrefetchAntihypertensives, err)
	}
	rec.Antihypertensives = activeMedications(meds)

	return rec, nil
}

func prefetchErr(key string, err error) error {
	return fmt.Errorf("prefetch %s: %w", key, err)
}

func currentObservations(items []fhir.Observation) []fhir.Observation {
	var out []fhir.Observation
	for _, o := range items {
		if !excludedObservationStatus.Contains(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

// bloodPressureObservations keeps panels and standalone systolic readings.
func bloodPressureObservations(items []fhir.Observation) []fhir.Observation {
	var out []fhir.Observation
	for _, o := range items {
		if isBloodPressure(o) {
			out = append(out, o)
		}
	}
	return out
}

func isBloodPressure(o fhir.Observation) bool {
	for _, code := range o.Code.Codes() {
		if code == LOINCSystolicBP || bloodPressurePanels.Contains(code) {
			return true
		}
	}
	return false
}

func activeConditions(items []fhir.Condition) []fhir.Condition {
	var out []fhir.Condition
	for _, c := range items {
		if anyIn(c.ClinicalStatus.Codes(), excludedClinicalStatus) ||
			anyIn(c.VerificationStatus.Codes(), excludedVerificationStatus) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func activeMedications(items []fhir.MedicationStatement) []fhir.MedicationStatement {
	var out []fhir.MedicationStatement
	for _, m := range items {
		if !excludedMedicationStatus.Contains(m.Status) {
			out = append(out, m)
		}
	}
	return out
}

func anyIn(codes []string, set mapset.Set[string]) bool {
	for _, code := range codes {
		if set.Contains(code) {
			return true
		}
	}
	return false
}
