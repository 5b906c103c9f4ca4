package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omasdev/provider-scheduling/internal/records"
)

func paymentFromRequest(w http.ResponseWriter, r *http.Request) (*records.Payment, bool) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, false
	}

	var apptID *uuid.UUID
	if req.AppointmentID != nil && *req.AppointmentID != "" {
		id, err := uuid.Parse(*req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return nil, false
		}
		apptID = &id
	}

	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "amount must not be negative")
		return nil, false
	}

	return &records.Payment{
		AppointmentID:   apptID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Status:          records.PaymentStatus(req.Status),
		ProviderAccount: req.ProviderAccount,
	}, true
}

func createPaymentHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := paymentFromRequest(w, r)
		if !ok {
			return
		}
		if p.Status != "" && !p.Status.Known() {
			writeError(w, http.StatusBadRequest, "validation_error", "unknown payment status")
			return
		}

		if err := store.CreatePayment(r.Context(), p); err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPaymentResponse(p))
	}
}

func listPaymentsHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var apptID *uuid.UUID
		if v := r.URL.Query().Get("appointment_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			apptID = &id
		}

		payments, err := store.ListPayments(r.Context(), apptID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]PaymentResponse, 0, len(payments))
		for i := range payments {
			resp = append(resp, toPaymentResponse(&payments[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getPaymentHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payment_id", "id must be a valid UUID")
			return
		}

		p, err := store.GetPaymentByID(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func updatePaymentHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payment_id", "id must be a valid UUID")
			return
		}

		p, ok := paymentFromRequest(w, r)
		if !ok {
			return
		}
		p.ID = id

		if err := store.UpdatePayment(r.Context(), p); err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func preferenceFromRequest(w http.ResponseWriter, r *http.Request) (*records.NotificationPreference, bool) {
	var req PreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, false
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
		return nil, false
	}

	enabled := req.Enabled == nil || *req.Enabled

	return &records.NotificationPreference{
		UserType:    req.UserType,
		UserID:      userID,
		Channel:     records.Channel(req.Channel),
		LeadMinutes: req.LeadMinutes,
		Enabled:     enabled,
	}, true
}

func createPreferenceHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := preferenceFromRequest(w, r)
		if !ok {
			return
		}

		if err := store.CreatePreference(r.Context(), p); err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPreferenceResponse(p))
	}
}

func listPreferencesHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID *uuid.UUID
		if v := r.URL.Query().Get("user_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
				return
			}
			userID = &id
		}

		prefs, err := store.ListPreferences(r.Context(), r.URL.Query().Get("user_type"), userID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]PreferenceResponse, 0, len(prefs))
		for i := range prefs {
			resp = append(resp, toPreferenceResponse(&prefs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updatePreferenceHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_preference_id", "id must be a valid UUID")
			return
		}

		p, ok := preferenceFromRequest(w, r)
		if !ok {
			return
		}
		p.ID = id

		if err := store.UpdatePreference(r.Context(), p); err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPreferenceResponse(p))
	}
}

func listOutboxHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := records.OutboxStatus(r.URL.Query().Get("status"))

		messages, err := store.ListOutbox(r.Context(), status)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]OutboxResponse, 0, len(messages))
		for i := range messages {
			resp = append(resp, toOutboxResponse(&messages[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAuditLogsHandler(store *records.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			limit = n
		}

		logs, err := store.ListAuditLogs(r.Context(), limit)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for i := range logs {
			resp = append(resp, toAuditLogResponse(&logs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
