package ascvd

import (
	"time"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

// asOf is the fixed evaluation instant used across tests.
var asOf = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func quantity(v float64) *fhir.Quantity {
	return &fhir.Quantity{Value: &v, Unit: "mg/dL"}
}

func concept(codes ...string) *fhir.CodeableConcept {
	cc := &fhir.CodeableConcept{}
	for _, c := range codes {
		cc.Coding = append(cc.Coding, fhir.Coding{Code: c})
	}
	return cc
}

func labObservation(loinc string, v float64) fhir.Observation {
	return fhir.Observation{
		ResourceType:  "Observation",
		Status:        "final",
		Code:          *concept(loinc),
		ValueQuantity: quantity(v),
	}
}

func bloodPressurePanel(systolic, diastolic float64) fhir.Observation {
	return fhir.Observation{
		ResourceType: "Observation",
		Status:       "final",
		Code:         *concept("85354-9"),
		Component: []fhir.ObservationComponent{
			{Code: *concept(LOINCSystolicBP), ValueQuantity: quantity(systolic)},
			{Code: *concept("8462-4"), ValueQuantity: quantity(diastolic)},
		},
	}
}

func codedObservation(loinc string, codes ...string) fhir.Observation {
	return fhir.Observation{
		ResourceType:         "Observation",
		Status:               "final",
		Code:                 *concept(loinc),
		ValueCodeableConcept: concept(codes...),
	}
}

// patientRecords builds records for a patient who turned age on or before
// asOf, with the given lipids and blood pressure, a never-smoker status and
// a non-black ethnicity.
func patientRecords(gender string, age int, totalChol, hdl, sbp float64) Records {
	birth := asOf.AddDate(-age, 0, -1)
	return Records{
		Patient: &fhir.Patient{
			ResourceType: "Patient",
			ID:           "patient-1",
			Gender:       gender,
			BirthDate:    birth.Format("2006-01-02"),
		},
		TotalCholesterol: []fhir.Observation{labObservation(LOINCTotalCholesterol, totalChol)},
		HDLCholesterol:   []fhir.Observation{labObservation(LOINCHDLCholesterol, hdl)},
		BloodPressure:    []fhir.Observation{bloodPressurePanel(sbp, 80)},
		SmokingStatus:    []fhir.Observation{codedObservation(LOINCSmokingStatus, "266919005")},
		Ethnicity:        []fhir.Observation{codedObservation("32624-9", "2106-3")},
	}
}

func fixedClock() time.Time { return asOf }
