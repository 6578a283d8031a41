package ascvd

// Compare computes the patient's risk and the risk of a healthy reference
// person of the same age, sex and race. ok is false when sex has no
// coefficient row; both scores are then absent together.
func Compare(obs Observations) (Result, bool) {
	c, ok := CoefficientsFor(obs.Sex, obs.Race)
	if !ok {
		return Result{}, false
	}
	return Result{
		PatientScore: riskFromCoefficients(c, obs.Factors()),
		HealthyScore: riskFromCoefficients(c, HealthyFactors(float64(obs.Age))),
	}, true
}
