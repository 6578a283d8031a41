package ascvd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/cvdrisk/internal/platform/fhir"
	"github.com/ehr/cvdrisk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ascvd/$calculate", h.Calculate)
	api.GET("/ascvd/assessments", h.ListAssessments)
}

// CalculateResponse is the body of POST /ascvd/$calculate. Result is nil
// and Outcome explains why when the records cannot be scored.
type CalculateResponse struct {
	Result  *Result                `json:"result"`
	Cards   []Card                 `json:"cards"`
	Outcome *fhir.OperationOutcome `json:"outcome,omitempty"`
}

func (h *Handler) Calculate(c echo.Context) error {
	var rec Records
	if err := json.NewDecoder(c.Request().Body).Decode(&rec); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid records body: "+err.Error()))
	}

	sink := &CardCollector{}
	result, err := h.svc.Evaluate(c.Request().Context(), rec, sink)
	resp := CalculateResponse{Result: result, Cards: sink.Cards}
	if resp.Cards == nil {
		resp.Cards = []Card{}
	}
	if err != nil {
		resp.Outcome = outcomeFor(err)
		return c.JSON(http.StatusUnprocessableEntity, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func outcomeFor(err error) *fhir.OperationOutcome {
	var missingErr *MissingDataError
	var invalidErr *InvalidValueError
	switch {
	case errors.As(err, &missingErr):
		return fhir.IncompleteOutcome(err.Error(), missingErr.Field)
	case errors.As(err, &invalidErr):
		return fhir.NewOperationOutcome("error", "value", err.Error())
	default:
		return fhir.NewOperationOutcome("error", "invalid", err.Error())
	}
}

// ListAssessments returns a patient's stored assessments as a FHIR
// searchset Bundle of RiskAssessment resources, newest first.
func (h *Handler) ListAssessments(c echo.Context) error {
	repo := h.svc.Repository()
	if repo == nil {
		return c.JSON(http.StatusNotImplemented,
			fhir.NewOperationOutcome("error", "not-supported", "assessment history is not enabled"))
	}
	patientID := c.QueryParam("patient")
	if patientID == "" {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("patient query parameter is required"))
	}

	pg := pagination.FromContext(c)
	items, total, err := repo.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
	}

	bundle := fhir.Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Entry:        make([]fhir.BundleEntry, 0, len(items)),
	}
	for _, l := range pg.Links(c.Request().URL.Path, c.QueryParams(), total) {
		bundle.Link = append(bundle.Link, fhir.BundleLink(l))
	}
	for _, a := range items {
		raw, err := json.Marshal(a.ToFHIR())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
		}
		bundle.Entry = append(bundle.Entry, fhir.BundleEntry{
			FullURL:  "RiskAssessment/" + a.ID.String(),
			Resource: raw,
		})
	}
	return c.JSON(http.StatusOK, bundle)
}
