package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omasdev/provider-scheduling/internal/scheduling"
)

func providerFromRequest(w http.ResponseWriter, r *http.Request) (*scheduling.Provider, bool) {
	var req ProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, false
	}

	return &scheduling.Provider{
		DisplayName: req.DisplayName,
		Specialty:   req.Specialty,
		Email:       req.Email,
		Phone:       req.Phone,
		Timezone:    req.Timezone,
	}, true
}

func createProviderHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := providerFromRequest(w, r)
		if !ok {
			return
		}

		created, err := svc.CreateProvider(r.Context(), p)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProviderResponse(created))
	}
}

func listProvidersHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := svc.ListProviders(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]ProviderResponse, 0, len(providers))
		for i := range providers {
			resp = append(resp, toProviderResponse(&providers[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getProviderHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		p, err := svc.GetProvider(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProviderResponse(p))
	}
}

func updateProviderHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		p, ok := providerFromRequest(w, r)
		if !ok {
			return
		}
		p.ID = id

		updated, err := svc.UpdateProvider(r.Context(), p)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProviderResponse(updated))
	}
}

// getAvailabilityHandler returns the provider's weekly rules, exceptions,
// and the computed upcoming bookable slots.
func getAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		avail, err := svc.GetAvailability(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		weekly := make([]RuleResponse, 0, len(avail.Rules))
		for i := range avail.Rules {
			weekly = append(weekly, toRuleResponse(&avail.Rules[i]))
		}
		exceptions := make([]ExceptionResponse, 0, len(avail.Exceptions))
		for i := range avail.Exceptions {
			exceptions = append(exceptions, toExceptionResponse(&avail.Exceptions[i]))
		}
		slots := avail.Slots
		if slots == nil {
			slots = []scheduling.Slot{}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Provider:      toProviderResponse(avail.Provider),
			Weekly:        weekly,
			Exceptions:    exceptions,
			UpcomingSlots: slots,
			Timezone:      avail.Timezone,
		})
	}
}
