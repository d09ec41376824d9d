package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/auth"
	"proctored-quiz-service/internal/domain"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidQuiz):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredential),
		errors.Is(err, domain.ErrInvalidOTP),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIncompleteAnswers),
		errors.Is(err, domain.ErrCameraRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAttemptsExhausted),
		errors.Is(err, domain.ErrChangeLimitExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
