package ascvd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
)

const (
	CDSServiceID = "ascvd-risk"
	CDSHook      = "patient-view"
)

// CDSService describes the risk service for CDS Hooks discovery.
func CDSService() fhir.CDSService {
	return fhir.CDSService{
		Hook:        CDSHook,
		ID:          CDSServiceID,
		Title:       "ASCVD 10-year risk",
		Description: "Estimates 10-year atherosclerotic cardiovascular disease risk with the 2013 ACC/AHA Pooled Cohort Equations and compares it with a healthy reference.",
		Prefetch: map[string]string{
			PrefetchPatient:           "Patient/{{context.patientId}}",
			PrefetchTotalCholesterol:  "Observation?patient={{context.patientId}}&code=http://loinc.org|" + LOINCTotalCholesterol + "&_sort=-date&_count=1",
			PrefetchHDL:               "Observation?patient={{context.patientId}}&code=http://loinc.org|" + LOINCHDLCholesterol + "&_sort=-date&_count=1",
			PrefetchBloodPressure:     "Observation?patient={{context.patientId}}&code=http://loinc.org|85354-9,http://loinc.org|55284-4,http://loinc.org|" + LOINCSystolicBP + "&_sort=-date&_count=1",
			PrefetchSmoking:           "Observation?patient={{context.patientId}}&code=http://loinc.org|" + LOINCSmokingStatus + "&_sort=-date&_count=1",
			PrefetchEthnicity:         "Observation?patient={{context.patientId}}&code=http://loinc.org|32624-9&_sort=-date&_count=1",
			PrefetchDiabetesType1:     "Condition?patient={{context.patientId}}&code=http://snomed.info/sct|46635009",
			PrefetchDiabetesType2:     "Condition?patient={{context.patientId}}&code=http://snomed.info/sct|44054006",
			PrefetchAntihypertensives: "MedicationStatement?patient={{context.patientId}}&status=active&category=antihypertensive",
		},
	}
}

// CardRenderer turns domain cards into CDS Hooks cards.
type CardRenderer struct {
	SourceLabel string
}

func (r CardRenderer) Render(card Card) fhir.CDSCard {
	out := fhir.CDSCard{
		UUID:      uuid.NewString(),
		Indicator: "info",
		Source:    fhir.CDSSource{Label: r.SourceLabel},
	}
	switch card.ID {
	case CardScore:
		patient, healthy := card.Values[ParamPatientScore], card.Values[ParamHealthyScore]
		out.Summary = fmt.Sprintf("10-year ASCVD risk: %.1f%%", patient)
		out.Detail = fmt.Sprintf("Estimated 10-year risk is %.1f%%. A person of the same age, sex and race with optimal risk factors has %.1f%%.", patient, healthy)
		if patient >= 7.5 {
			out.Indicator = "warning"
		}
	case CardStopSmoking:
		out.Summary = "Advise smoking cessation"
		out.Detail = "The patient is a current smoker. Smoking cessation lowers 10-year ASCVD risk."
		out.Indicator = "warning"
	case CardReduceBloodPressure:
		out.Summary = "Consider blood pressure reduction"
		out.Detail = fmt.Sprintf("Systolic blood pressure is %.0f mmHg. Lowering it reduces 10-year ASCVD risk.", card.Values[ParamSystolicBP])
		out.Indicator = "warning"
	default:
		out.Summary = card.ID
	}
	return out
}

// HookHandler returns the CDS Hooks handler for the risk service. Records
// that cannot be scored still yield any applicable advisory cards.
func HookHandler(svc *Service, renderer CardRenderer, logger zerolog.Logger) fhir.ServiceHandler {
	return func(ctx context.Context, req fhir.CDSHookRequest) (*fhir.CDSHookResponse, error) {
		rec, err := RecordsFromPrefetch(req.Prefetch)
		if err != nil {
			return nil, err
		}
		if rec.Patient != nil && rec.Patient.ID == "" {
			rec.Patient.ID = req.ContextString("patientId")
		}

		var sink CardCollector
		if _, err := svc.Evaluate(ctx, rec, &sink); err != nil {
			logger.Debug().Err(err).Str("hook_instance", req.HookInstance).Msg("no risk score for hook")
		}

		resp := &fhir.CDSHookResponse{Cards: make([]fhir.CDSCard, 0, len(sink.Cards))}
		for _, card := range sink.Cards {
			resp.Cards = append(resp.Cards, renderer.Render(card))
		}
		return resp, nil
	}
}
