package ascvd

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// LOINC codes used to route prefetched observations to the right input.
const (
	LOINCTotalCholesterol = "2093-3"
	LOINCHDLCholesterol   = "2085-9"
	LOINCSystolicBP       = "8480-6"
	LOINCSmokingStatus    = "72166-2"
)

// bloodPressurePanels lists the panel codes whose systolic component is read.
var bloodPressurePanels = mapset.NewSet[string](
	"85354-9", // Blood pressure panel with all children optional
	"55284-4", // Blood pressure systolic and diastolic
)

// CDC Race & Ethnicity code for Black or African American.
const raceBlackOrAfricanAmerican = "2054-5"

// US Core race extension and its OMB category sub-extension.
const (
	usCoreRaceExtension = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-race"
	ombCategoryURL      = "ombCategory"
)
