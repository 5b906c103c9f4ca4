package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omasdev/provider-scheduling/internal/scheduling"
)

func ruleFromRequest(w http.ResponseWriter, r *http.Request) (*scheduling.AvailabilityRule, bool) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, false
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
		return nil, false
	}

	return &scheduling.AvailabilityRule{
		ProviderID: providerID,
		Weekday:    req.Weekday,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Location:   req.Location,
	}, true
}

func createRuleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule, ok := ruleFromRequest(w, r)
		if !ok {
			return
		}

		created, err := svc.CreateRule(r.Context(), rule)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRuleResponse(created))
	}
}

func listRulesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(r.URL.Query().Get("provider_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id query parameter must be a valid UUID")
			return
		}

		rules, err := svc.ListRules(r.Context(), providerID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]RuleResponse, 0, len(rules))
		for i := range rules {
			resp = append(resp, toRuleResponse(&rules[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateRuleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be a valid UUID")
			return
		}

		rule, ok := ruleFromRequest(w, r)
		if !ok {
			return
		}
		rule.ID = id

		updated, err := svc.UpdateRule(r.Context(), rule)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRuleResponse(updated))
	}
}

func deleteRuleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteRule(r.Context(), id); err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func exceptionFromRequest(w http.ResponseWriter, r *http.Request) (*scheduling.AvailabilityException, bool) {
	var req ExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, false
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
		return nil, false
	}

	startAt, err := parseTimestamp("start_at", req.StartAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return nil, false
	}
	endAt, err := parseTimestamp("end_at", req.EndAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return nil, false
	}

	// Blocking unless explicitly marked otherwise.
	blocking := req.IsBlocking == nil || *req.IsBlocking

	return &scheduling.AvailabilityException{
		ProviderID: providerID,
		StartAt:    startAt,
		EndAt:      endAt,
		Reason:     req.Reason,
		IsBlocking: blocking,
	}, true
}

func createExceptionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exc, ok := exceptionFromRequest(w, r)
		if !ok {
			return
		}

		created, err := svc.CreateException(r.Context(), exc)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toExceptionResponse(created))
	}
}

func listExceptionsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(r.URL.Query().Get("provider_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id query parameter must be a valid UUID")
			return
		}

		exceptions, err := svc.ListExceptions(r.Context(), providerID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]ExceptionResponse, 0, len(exceptions))
		for i := range exceptions {
			resp = append(resp, toExceptionResponse(&exceptions[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateExceptionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_exception_id", "id must be a valid UUID")
			return
		}

		exc, ok := exceptionFromRequest(w, r)
		if !ok {
			return
		}
		exc.ID = id

		updated, err := svc.UpdateException(r.Context(), exc)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExceptionResponse(updated))
	}
}

func deleteExceptionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_exception_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteException(r.Context(), id); err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
