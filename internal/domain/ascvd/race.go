package ascvd

import (
	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

// DetermineRace classifies an ethnicity observation's coded values. Only
// the CDC "Black or African American" code selects RaceBlack.
func DetermineRace(codes []string) Race {
	for _, code := range codes {
		if code == raceBlackOrAfricanAmerican {
			return RaceBlack
		}
	}
	return RaceOther
}

// raceObservationFromPatient lifts the OMB categories of a US Core race
// extension into an ethnicity observation. ok is false when the patient
// carries no such extension.
func raceObservationFromPatient(p *fhir.Patient) (fhir.Observation, bool) {
	if p == nil {
		return fhir.Observation{}, false
	}
	for _, ext := range p.Extension {
		if ext.URL != usCoreRaceExtension {
			continue
		}
		value := &fhir.CodeableConcept{}
		for _, sub := range ext.Extension {
			if sub.URL == ombCategoryURL && sub.ValueCoding != nil {
				value.Coding = append(value.Coding, *sub.ValueCoding)
			}
		}
		if len(value.Coding) == 0 {
			return fhir.Observation{}, false
		}
		return fhir.Observation{
			ResourceType:         "Observation",
			Status:               "final",
			Code:                 fhir.CodeableConcept{Text: "Race"},
			ValueCodeableConcept: value,
		}, true
	}
	return fhir.Observation{}, false
}
