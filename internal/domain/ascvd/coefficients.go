package ascvd

// Coefficients is one row of the 2013 ACC/AHA Pooled Cohort Equations
// (Goff et al., Circulation 2014;129:S49-S73, Table A). Terms absent from a
// row are zero.
type Coefficients struct {
	LnAge               float64
	LnAgeSquared        float64
	LnTotalChol         float64
	LnAgeLnTotalChol    float64
	LnHDL               float64
	LnAgeLnHDL          float64
	LnTreatedSBP        float64
	LnAgeLnTreatedSBP   float64
	LnUntreatedSBP      float64
	LnAgeLnUntreatedSBP float64
	Smoker              float64
	LnAgeSmoker         float64
	Diabetes            float64
	BaselineSurvival    float64
	MeanLinearPredictor float64
}

type cohort struct {
	sex  Sex
	race Race
}

// coefficientTable is the single source of truth for the four published
// sex/race rows.
var coefficientTable = map[cohort]Coefficients{
	{SexFemale, RaceOther}: {
		LnAge:               -29.799,
		LnAgeSquared:        4.884,
		LnTotalChol:         13.540,
		LnAgeLnTotalChol:    -3.114,
		LnHDL:               -13.578,
		LnAgeLnHDL:          3.149,
		LnTreatedSBP:        2.019,
		LnAgeLnTreatedSBP:   0,
		LnUntreatedSBP:      1.957,
		LnAgeLnUntreatedSBP: 0,
		Smoker:              7.574,
		LnAgeSmoker:         -1.665,
		Diabetes:            0.661,
		BaselineSurvival:    0.9665,
		MeanLinearPredictor: -29.18,
	},
	{SexFemale, RaceBlack}: {
		LnAge:               17.114,
		LnAgeSquared:        0,
		LnTotalChol:         0.940,
		LnAgeLnTotalChol:    0,
		LnHDL:               -18.920,
		LnAgeLnHDL:          4.475,
		LnTreatedSBP:        29.291,
		LnAgeLnTreatedSBP:   -6.432,
		LnUntreatedSBP:      27.820,
		LnAgeLnUntreatedSBP: -6.087,
		Smoker:              0.691,
		LnAgeSmoker:         0,
		Diabetes:            0.874,
		BaselineSurvival:    0.9533,
		MeanLinearPredictor: 86.61,
	},
	{SexMale, RaceOther}: {
		LnAge:               12.344,
		LnAgeSquared:        0,
		LnTotalChol:         11.853,
		LnAgeLnTotalChol:    -2.664,
		LnHDL:               -7.990,
		LnAgeLnHDL:          1.769,
		LnTreatedSBP:        1.797,
		LnAgeLnTreatedSBP:   0,
		LnUntreatedSBP:      1.764,
		LnAgeLnUntreatedSBP: 0,
		Smoker:              7.837,
		LnAgeSmoker:         -1.795,
		Diabetes:            0.658,
		BaselineSurvival:    0.9144,
		MeanLinearPredictor: 61.18,
	},
	{SexMale, RaceBlack}: {
		LnAge:               2.469,
		LnAgeSquared:        0,
		LnTotalChol:         0.302,
		LnAgeLnTotalChol:    0,
		LnHDL:               -0.307,
		LnAgeLnHDL:          0,
		LnTreatedSBP:        1.916,
		LnAgeLnTreatedSBP:   0,
		LnUntreatedSBP:      1.809,
		LnAgeLnUntreatedSBP: 0,
		Smoker:              0.549,
		LnAgeSmoker:         0,
		Diabetes:            0.645,
		BaselineSurvival:    0.8954,
		MeanLinearPredictor: 19.54,
	},
}

// CoefficientsFor returns the row for sex and race. ok is false when sex is
// neither male nor female.
func CoefficientsFor(sex Sex, race Race) (Coefficients, bool) {
	if race != RaceBlack {
		race = RaceOther
	}
	c, ok := coefficientTable[cohort{sex: sex, race: race}]
	return c, ok
}
