package ascvd

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// SmokingCategory is the five-level smoking status derived from the coded
// value of a smoking status observation.
type SmokingCategory int

const (
	SmokingNever    SmokingCategory = 0
	SmokingFormer   SmokingCategory = 1
	SmokingSomeDay  SmokingCategory = 2
	SmokingEveryDay SmokingCategory = 3
	SmokingHeavy    SmokingCategory = 4
)

// Smoker reports whether the category counts as a current smoker in the
// equation. Never and former smokers do not.
func (c SmokingCategory) Smoker() bool {
	return c >= SmokingSomeDay
}

// Indicator returns the binary smoker term (0 or 1).
func (c SmokingCategory) Indicator() int {
	if c.Smoker() {
		return 1
	}
	return 0
}

func (c SmokingCategory) String() string {
	switch c {
	case SmokingFormer:
		return "former"
	case SmokingSomeDay:
		return "some-day"
	case SmokingEveryDay:
		return "every-day"
	case SmokingHeavy:
		return "heavy"
	default:
		return "never"
	}
}

// smokingCodes maps LOINC answer codes (LA*) and SNOMED CT codes of the
// smoking status value set to their category.
var smokingCodes = []struct {
	category SmokingCategory
	codes    mapset.Set[string]
}{
	{SmokingNever, mapset.NewSet[string]("LA18978-9", "LA18980-5", "266919005")},
	{SmokingFormer, mapset.NewSet[string]("LA15920-4", "8517006")},
	{SmokingSomeDay, mapset.NewSet[string]("LA18977-1", "428041000124106")},
	{SmokingEveryDay, mapset.NewSet[string]("LA18976-3", "LA18979-7", "449868002")},
	{SmokingHeavy, mapset.NewSet[string]("428071000124103")},
}

// DetermineSmokingStatus maps a coded smoking status to its category.
// Unrecognised codes are treated as never smoked.
func DetermineSmokingStatus(code string) SmokingCategory {
	category, _ := lookupSmokingCode(code)
	return category
}

func lookupSmokingCode(code string) (SmokingCategory, bool) {
	for _, entry := range smokingCodes {
		if entry.codes.Contains(code) {
			return entry.category, true
		}
	}
	return SmokingNever, false
}
