package api

import (
	"errors"
	"net/http"

	"github.com/omasdev/provider-scheduling/internal/records"
	"github.com/omasdev/provider-scheduling/internal/scheduling"
)

// handleDomainError maps domain errors to HTTP statuses in one place.
// Validation failures are 400, missing records 404, conflicts and blocked
// preconditions 409; anything unrecognized is a 500.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, scheduling.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "availability_rule_not_found", err.Error())
	case errors.Is(err, scheduling.ErrExceptionNotFound):
		writeError(w, http.StatusNotFound, "availability_exception_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, records.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "payment_not_found", err.Error())
	case errors.Is(err, records.ErrPreferenceNotFound):
		writeError(w, http.StatusNotFound, "notification_preference_not_found", err.Error())
	case errors.Is(err, scheduling.ErrBookingConflict):
		writeError(w, http.StatusConflict, "booking_conflict", err.Error())
	case errors.Is(err, scheduling.ErrActiveAppointments):
		writeError(w, http.StatusConflict, "patient_has_active_appointments", err.Error())
	case errors.Is(err, scheduling.ErrMissingInterval),
		errors.Is(err, scheduling.ErrInvalidInterval),
		errors.Is(err, scheduling.ErrInvalidRule),
		errors.Is(err, scheduling.ErrInvalidRecord),
		errors.Is(err, records.ErrInvalidPayment),
		errors.Is(err, records.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
