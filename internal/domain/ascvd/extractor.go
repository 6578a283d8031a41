package ascvd

import (
	"math"
	"time"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

// Extract validates the clinical records and builds the calculator inputs
// as of the given instant. It fails with a *MissingDataError when a
// required value is absent, ErrInvalidSex when the patient is neither male
// nor female, and an *InvalidValueError when a value cannot enter the
// equation's logarithms.
func Extract(rec Records, asOf time.Time) (Observations, error) {
	var obs Observations

	if rec.Patient == nil {
		return obs, missing(FieldPatient)
	}
	birth, ok := rec.Patient.Birth()
	if !ok {
		return obs, missing(FieldBirthDate)
	}
	obs.Age = AgeAt(birth, asOf)
	if obs.Age <= 0 {
		return obs, &InvalidValueError{Field: FieldAge, Value: float64(obs.Age)}
	}

	obs.Sex = ParseSex(rec.Patient.Gender)
	if obs.Sex == SexUnknown {
		return obs, ErrInvalidSex
	}

	var err error
	if obs.TotalCholesterol, err = firstQuantity(rec.TotalCholesterol, FieldTotalCholesterol); err != nil {
		return obs, err
	}
	if obs.HDLCholesterol, err = firstQuantity(rec.HDLCholesterol, FieldHDLCholesterol); err != nil {
		return obs, err
	}
	sbp, ok := SystolicBP(rec.BloodPressure)
	if !ok {
		return obs, missing(FieldSystolicBP)
	}
	if obs.SystolicBP, err = positive(FieldSystolicBP, sbp); err != nil {
		return obs, err
	}

	if obs.Smoking, err = SmokingStatus(rec.SmokingStatus); err != nil {
		return obs, err
	}
	if obs.Race, err = raceOf(rec); err != nil {
		return obs, err
	}

	obs.Diabetic = len(rec.Type1Diabetes) > 0 || len(rec.Type2Diabetes) > 0
	obs.TreatedHypertension = len(rec.Antihypertensives) > 0
	return obs, nil
}

// AgeAt returns the age in whole years on asOf.
func AgeAt(birth, asOf time.Time) int {
	asOf = asOf.In(birth.Location())
	years := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		years--
	}
	return years
}

// SystolicBP scans blood pressure observations for the first systolic
// value: a component coded 8480-6, or a standalone 8480-6 observation.
func SystolicBP(observations []fhir.Observation) (float64, bool) {
	for _, o := range observations {
		for _, comp := range o.Component {
			if comp.Code.HasCode(LOINCSystolicBP) && comp.ValueQuantity != nil && comp.ValueQuantity.Value != nil {
				return *comp.ValueQuantity.Value, true
			}
		}
		if o.Code.HasCode(LOINCSystolicBP) && o.ValueQuantity != nil && o.ValueQuantity.Value != nil {
			return *o.ValueQuantity.Value, true
		}
	}
	return 0, false
}

// SmokingStatus classifies the first smoking status observation. No
// observation at all means never smoked; an observation without a coded
// value is missing data.
func SmokingStatus(observations []fhir.Observation) (SmokingCategory, error) {
	if len(observations) == 0 {
		return SmokingNever, nil
	}
	codes := observations[0].ValueCodeableConcept.Codes()
	if len(codes) == 0 {
		return SmokingNever, missing(FieldSmokingStatus)
	}
	for _, code := range codes {
		if category, ok := lookupSmokingCode(code); ok {
			return category, nil
		}
	}
	return SmokingNever, nil
}

func raceOf(rec Records) (Race, error) {
	ethnicity := rec.Ethnicity
	if len(ethnicity) == 0 {
		if lifted, ok := raceObservationFromPatient(rec.Patient); ok {
			ethnicity = []fhir.Observation{lifted}
		}
	}
	if len(ethnicity) == 0 {
		return RaceOther, missing(FieldEthnicity)
	}
	codes := ethnicity[0].ValueCodeableConcept.Codes()
	if len(codes) == 0 {
		return RaceOther, missing(FieldEthnicity)
	}
	return DetermineRace(codes), nil
}

func firstQuantity(observations []fhir.Observation, field string) (float64, error) {
	if len(observations) == 0 {
		return 0, missing(field)
	}
	q := observations[0].ValueQuantity
	if q == nil || q.Value == nil {
		return 0, missing(field)
	}
	return positive(field, *q.Value)
}

func positive(field string, v float64) (float64, error) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidValueError{Field: field, Value: v}
	}
	return v, nil
}
