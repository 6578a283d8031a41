package ascvd

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Evaluation outcomes reported to Metrics.
const (
	OutcomeScored       = "scored"
	OutcomeMissingData  = "missing_data"
	OutcomeInvalidSex   = "invalid_sex"
	OutcomeInvalidValue = "invalid_value"
)

// Metrics receives evaluation counters. *telemetry.Metrics implements it.
type Metrics interface {
	CalculationOutcome(outcome string)
	AdvisoryEmitted(card string)
	RiskScore(percent float64)
}

type nopMetrics struct{}

func (nopMetrics) CalculationOutcome(string) {}
func (nopMetrics) AdvisoryEmitted(string)    {}
func (nopMetrics) RiskScore(float64)         {}

// Service runs one risk evaluation: extraction, patient and healthy scores,
// the score card, and the advisory cards.
type Service struct {
	logger       zerolog.Logger
	repo         AssessmentRepository
	metrics      Metrics
	now          func() time.Time
	sbpThreshold float64
}

func NewService(logger zerolog.Logger) *Service {
	return &Service{
		logger:       logger.With().Str("component", "ascvd").Logger(),
		metrics:      nopMetrics{},
		now:          time.Now,
		sbpThreshold: DefaultSBPThreshold,
	}
}

// SetRepository enables assessment history. A nil repository disables it.
func (s *Service) SetRepository(repo AssessmentRepository) { s.repo = repo }

func (s *Service) SetMetrics(m Metrics) {
	if m == nil {
		m = nopMetrics{}
	}
	s.metrics = m
}

// SetClock overrides the instant used for age and card effective times.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) SetSBPThreshold(threshold float64) { s.sbpThreshold = threshold }

// Repository returns the configured history store, or nil.
func (s *Service) Repository() AssessmentRepository { return s.repo }

// Evaluate computes the risk scores for rec and emits the resulting cards to
// sink. On success the score card is emitted and the result returned. When
// the records are insufficient the error says why and no score card is
// emitted. Advisory cards are evaluated either way.
func (s *Service) Evaluate(ctx context.Context, rec Records, sink CardSink) (*Result, error) {
	now := s.now()

	result, err := s.score(ctx, rec, now)
	if err == nil {
		sink.Emit(Card{
			ID:        CardScore,
			Effective: now,
			Values: map[string]float64{
				ParamPatientScore: result.PatientScore,
				ParamHealthyScore: result.HealthyScore,
			},
		})
	}

	for _, card := range Advisories(rec, s.sbpThreshold, now) {
		s.logger.Info().Str("card", card.ID).Str("patient_id", patientID(rec)).Msg("advisory triggered")
		s.metrics.AdvisoryEmitted(card.ID)
		sink.Emit(card)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) score(ctx context.Context, rec Records, now time.Time) (*Result, error) {
	obs, err := Extract(rec, now)
	if err != nil {
		s.logFailure(err)
		return nil, err
	}

	s.logger.Debug().
		Int("age", obs.Age).
		Str("sex", string(obs.Sex)).
		Str("race", string(obs.Race)).
		Float64("total_cholesterol", obs.TotalCholesterol).
		Float64("hdl_cholesterol", obs.HDLCholesterol).
		Float64("systolic_bp", obs.SystolicBP).
		Str("smoking", obs.Smoking.String()).
		Bool("diabetic", obs.Diabetic).
		Bool("treated_hypertension", obs.TreatedHypertension).
		Msg("calculator inputs")

	res, ok := Compare(obs)
	if !ok {
		// Extract already rejects unknown sex; kept for callers building
		// Observations by hand.
		s.logFailure(ErrInvalidSex)
		return nil, ErrInvalidSex
	}

	s.logger.Debug().
		Float64("patient_score", res.PatientScore).
		Float64("healthy_score", res.HealthyScore).
		Msg("risk calculated")
	s.metrics.CalculationOutcome(OutcomeScored)
	s.metrics.RiskScore(res.PatientScore)

	if id := patientID(rec); s.repo != nil && id != "" {
		a := NewAssessment(id, obs, res, now)
		if err := s.repo.Create(ctx, a); err != nil {
			s.logger.Error().Err(err).Str("patient_id", id).Msg("failed to store assessment")
		}
	}

	return &res, nil
}

func (s *Service) logFailure(err error) {
	evt := s.logger.Warn().Err(err)
	var missingErr *MissingDataError
	var invalidErr *InvalidValueError
	switch {
	case errors.As(err, &missingErr):
		s.metrics.CalculationOutcome(OutcomeMissingData)
		evt.Str("reason", OutcomeMissingData).Str("field", missingErr.Field)
	case errors.As(err, &invalidErr):
		s.metrics.CalculationOutcome(OutcomeInvalidValue)
		evt.Str("reason", OutcomeInvalidValue).Str("field", invalidErr.Field)
	case errors.Is(err, ErrInvalidSex):
		s.metrics.CalculationOutcome(OutcomeInvalidSex)
		evt.Str("reason", OutcomeInvalidSex)
	}
	evt.Msg("risk not calculated")
}

func patientID(rec Records) string {
	if rec.Patient == nil {
		return ""
	}
	return rec.Patient.ID
}
