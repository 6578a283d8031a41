package ascvd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

// Sex selects the sex-specific coefficient rows.
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// ParseSex maps an administrative gender to a Sex. Anything other than
// "male" or "female" is SexUnknown.
func ParseSex(gender string) Sex {
	switch gender {
	case "male":
		return SexMale
	case "female":
		return SexFemale
	default:
		return SexUnknown
	}
}

// Race selects the race-specific coefficient rows. The published equations
// distinguish only African American from everyone else.
type Race string

const (
	RaceBlack Race = "black"
	RaceOther Race = "other"
)

// Records is the typed clinical data supplied for one calculation. Each
// observation slice holds the candidates for one input, most relevant first.
type Records struct {
	Patient           *fhir.Patient              `json:"patient,omitempty"`
	TotalCholesterol  []fhir.Observation         `json:"totalCholesterol,omitempty"`
	HDLCholesterol    []fhir.Observation         `json:"hdlCholesterol,omitempty"`
	BloodPressure     []fhir.Observation         `json:"bloodPressure,omitempty"`
	SmokingStatus     []fhir.Observation         `json:"smokingStatus,omitempty"`
	Ethnicity         []fhir.Observation         `json:"ethnicity,omitempty"`
	Type1Diabetes     []fhir.Condition           `json:"type1Diabetes,omitempty"`
	Type2Diabetes     []fhir.Condition           `json:"type2Diabetes,omitempty"`
	Antihypertensives []fhir.MedicationStatement `json:"antihypertensives,omitempty"`
}

// Observations is the validated, immutable input set for one calculation.
type Observations struct {
	Age                 int
	Sex                 Sex
	Race                Race
	TotalCholesterol    float64 // mg/dL
	HDLCholesterol      float64 // mg/dL
	SystolicBP          float64 // mmHg
	Smoking             SmokingCategory
	Diabetic            bool
	TreatedHypertension bool
}

// Factors converts the observations into calculator inputs.
func (o Observations) Factors() RiskFactors {
	return RiskFactors{
		Age:                 float64(o.Age),
		TotalCholesterol:    o.TotalCholesterol,
		HDLCholesterol:      o.HDLCholesterol,
		SystolicBP:          o.SystolicBP,
		Smoker:              o.Smoking.Smoker(),
		Diabetic:            o.Diabetic,
		TreatedHypertension: o.TreatedHypertension,
	}
}

// Validate checks hand-built observations the way Extract checks records.
func (o Observations) Validate() error {
	if o.Age <= 0 {
		return &InvalidValueError{Field: FieldAge, Value: float64(o.Age)}
	}
	if o.Sex != SexMale && o.Sex != SexFemale {
		return ErrInvalidSex
	}
	for _, v := range []struct {
		field string
		value float64
	}{
		{FieldTotalCholesterol, o.TotalCholesterol},
		{FieldHDLCholesterol, o.HDLCholesterol},
		{FieldSystolicBP, o.SystolicBP},
	} {
		if _, err := positive(v.field, v.value); err != nil {
			return err
		}
	}
	return nil
}

// Result pairs the patient's 10-year risk with the healthy reference risk,
// both as percentages.
type Result struct {
	PatientScore float64 `json:"patientScore"`
	HealthyScore float64 `json:"healthyScore"`
}

// Card identifiers handed to the output sink.
const (
	CardScore               = "ascvd-score"
	CardStopSmoking         = "stop-smoking"
	CardReduceBloodPressure = "reduce-blood-pressure"
)

// Card parameter names.
const (
	ParamPatientScore = "patientScore"
	ParamHealthyScore = "healthyScore"
	ParamSystolicBP   = "systolicBP"
)

// Card is one output item: an identifier, the instant it is effective, and
// its numeric parameters.
type Card struct {
	ID        string             `json:"id"`
	Effective time.Time          `json:"effective"`
	Values    map[string]float64 `json:"values,omitempty"`
}

// CardSink receives the cards produced by an evaluation.
type CardSink interface {
	Emit(card Card)
}

// CardCollector is a CardSink that keeps cards in emission order.
type CardCollector struct {
	Cards []Card
}

func (c *CardCollector) Emit(card Card) {
	c.Cards = append(c.Cards, card)
}

// Find returns the first collected card with the given id.
func (c *CardCollector) Find(id string) (Card, bool) {
	for _, card := range c.Cards {
		if card.ID == id {
			return card, true
		}
	}
	return Card{}, false
}

var (
	ErrMissingData  = errors.New("required clinical data missing")
	ErrInvalidSex   = errors.New("sex not specified or invalid")
	ErrInvalidValue = errors.New("clinical value out of range")
)

// Input field names used in errors and diagnostics.
const (
	FieldPatient          = "patient"
	FieldBirthDate        = "birth_date"
	FieldAge              = "age"
	FieldTotalCholesterol = "total_cholesterol"
	FieldHDLCholesterol   = "hdl_cholesterol"
	FieldSystolicBP       = "systolic_bp"
	FieldSmokingStatus    = "smoking_status"
	FieldEthnicity        = "ethnicity"
)

// MissingDataError reports which required input was absent.
type MissingDataError struct {
	Field string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingData, e.Field)
}

func (e *MissingDataError) Unwrap() error { return ErrMissingData }

// InvalidValueError reports an input that cannot enter the logarithms of
// the risk equation.
type InvalidValueError struct {
	Field string
	Value float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %s=%g", ErrInvalidValue, e.Field, e.Value)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

func missing(field string) error {
	return &MissingDataError{Field: field}
}
