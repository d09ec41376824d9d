package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/app"
	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/export"
)

// Issuer signs tokens after a successful login.
type Issuer interface {
	TokenParser
	Issue(user domain.User) (string, error)
}

// APIHandler serves the JSON API for students and professors.
type APIHandler struct {
	quiz     *app.QuizService
	accounts *app.AccountService
	tokens   Issuer
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewAPIHandler(quiz *app.QuizService, accounts *app.AccountService, tokens Issuer, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		quiz:     quiz,
		accounts: accounts,
		tokens:   tokens,
		validate: validator.New(),
		log:      log,
	}
}

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=4,max=72"`
	Email    string `json:"email" validate:"omitempty,email"`
	OTP      string `json:"otp" validate:"omitempty,len=6,numeric"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token    string      `json:"token"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=4,max=72"`
}

type beginRequest struct {
	QuizID  string `json:"quizId" validate:"omitempty,max=64"`
	USN     string `json:"usn" validate:"omitempty,alphanum,max=32"`
	Section string `json:"section" validate:"omitempty,alphanum,max=16"`
}

type beginResponse struct {
	domain.SessionSnapshot
	RemainingSeconds int64 `json:"remainingSeconds"`
}

type answerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	// Option may be empty to clear an answer.
	Option string `json:"option"`
}

type remainingResponse struct {
	RemainingSeconds int64 `json:"remainingSeconds"`
}

type scoreResponse struct {
	Score          int   `json:"score"`
	Total          int   `json:"total"`
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

type activeResponse struct {
	Active []string `json:"active"`
}

type resultResponse struct {
	domain.QuizResult
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

func (h *APIHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.RequestOTP(r.Context(), req.Email); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Register creates student accounts only; professors are provisioned from the CLI.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), app.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		OTP:      req.OTP,
		Role:     domain.RoleStudent,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: user.Username, Role: user.Role})
}

func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), claims.Username, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) Begin(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req beginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.quiz.Begin(r.Context(), app.BeginRequest{
		Username: claims.Username,
		QuizID:   req.QuizID,
		USN:      req.USN,
		Section:  req.Section,
	}); err != nil {
		writeError(w, h.log, err)
		return
	}
	snap, err := h.quiz.Snapshot(r.Context(), claims.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, beginResponse{SessionSnapshot: snap, RemainingSeconds: seconds(snap.Remaining)})
}

func (h *APIHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.quiz.RecordAnswer(r.Context(), claims.Username, req.QuestionID, req.Option); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	left, err := h.quiz.RemainingTime(r.Context(), claims.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, remainingResponse{RemainingSeconds: seconds(left)})
}

// Submit is user initiated. It only counts as a time-limit submission once nothing remains,
// so any request body is ignored.
func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	left, err := h.quiz.RemainingTime(r.Context(), claims.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	score, err := h.quiz.TrySubmit(r.Context(), claims.Username, left == 0)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Score: score.Score, Total: score.Total, ElapsedSeconds: seconds(score.Elapsed)})
}

func (h *APIHandler) ActiveTakers(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	names, err := h.quiz.ActiveTakers(r.Context(), claims.Role)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, activeResponse{Active: names})
}

func (h *APIHandler) Results(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	results, err := h.quiz.Results(r.Context(), claims.Role, section)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := make([]resultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, resultResponse{QuizResult: res, ElapsedSeconds: res.ElapsedSeconds()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) ResultsCSV(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(section)))
	if err := h.quiz.ExportResults(r.Context(), claims.Role, section, w); err != nil {
		w.Header().Del("Content-Disposition")
		writeError(w, h.log, err)
	}
}

func (h *APIHandler) section(w http.ResponseWriter, r *http.Request) (string, bool) {
	section := r.URL.Query().Get("section")
	if err := h.validate.Var(section, "omitempty,alphanum,max=16"); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid section"})
		return "", false
	}
	return section, true
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func seconds(d time.Duration) int64 {
	return int64(d.Round(time.Second) / time.Second)
}
