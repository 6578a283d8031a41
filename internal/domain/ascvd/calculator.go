package ascvd

import "math"

// RiskFactors are the patient values entering the equation. Flags select
// coefficient terms; they are not scaled.
type RiskFactors struct {
	Age                 float64
	TotalCholesterol    float64
	HDLCholesterol      float64
	SystolicBP          float64
	Smoker              bool
	Diabetic            bool
	TreatedHypertension bool
}

// Guideline-optimal values used for the healthy reference person.
const (
	HealthyTotalCholesterol = 170.0
	HealthyHDLCholesterol   = 50.0
	HealthySystolicBP       = 110.0
)

// HealthyFactors returns the reference person's factors for the given age:
// optimal lipids and blood pressure, nonsmoker, no diabetes, untreated.
func HealthyFactors(age float64) RiskFactors {
	return RiskFactors{
		Age:              age,
		TotalCholesterol: HealthyTotalCholesterol,
		HDLCholesterol:   HealthyHDLCholesterol,
		SystolicBP:       HealthySystolicBP,
	}
}

// LinearPredictor evaluates the weighted sum of log-transformed factors and
// their interactions for the given coefficient row.
func LinearPredictor(c Coefficients, f RiskFactors) float64 {
	lnAge := math.Log(f.Age)
	lnTotalChol := math.Log(f.TotalCholesterol)
	lnHDL := math.Log(f.HDLCholesterol)
	lnSBP := math.Log(f.SystolicBP)

	sum := c.LnAge*lnAge +
		c.LnAgeSquared*lnAge*lnAge +
		c.LnTotalChol*lnTotalChol +
		c.LnAgeLnTotalChol*lnAge*lnTotalChol +
		c.LnHDL*lnHDL +
		c.LnAgeLnHDL*lnAge*lnHDL

	if f.TreatedHypertension {
		sum += c.LnTreatedSBP*lnSBP + c.LnAgeLnTreatedSBP*lnAge*lnSBP
	} else {
		sum += c.LnUntreatedSBP*lnSBP + c.LnAgeLnUntreatedSBP*lnAge*lnSBP
	}
	if f.Smoker {
		sum += c.Smoker + c.LnAgeSmoker*lnAge
	}
	if f.Diabetic {
		sum += c.Diabetes
	}
	return sum
}

// Risk returns the 10-year ASCVD risk in percent. Non-positive inputs are not
// rejected here; their logarithms propagate as NaN or Inf. Risk returns NaN
// when sex has no coefficient row.
func Risk(sex Sex, race Race, f RiskFactors) float64 {
	c, ok := CoefficientsFor(sex, race)
	if !ok {
		return math.NaN()
	}
	return riskFromCoefficients(c, f)
}

func riskFromCoefficients(c Coefficients, f RiskFactors) float64 {
	lp := LinearPredictor(c, f)
	return 100 * (1 - math.Pow(c.BaselineSurvival, math.Exp(lp-c.MeanLinearPredictor)))
}
