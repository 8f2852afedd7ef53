package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/proctorly/proctorly-backend/internal/middleware"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/proctorly/proctorly-backend/internal/response"
	"github.com/proctorly/proctorly-backend/internal/service"
	"github.com/proctorly/proctorly-backend/internal/validator"
)

// ExamHandler handles the candidate-facing exam lifecycle endpoints.
type ExamHandler struct {
	manager     *service.Manager
	authService *service.AuthService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(manager *service.Manager, authService *service.AuthService) *ExamHandler {
	return &ExamHandler{
		manager:     manager,
		authService: authService,
	}
}

// StartExamRequest is the start-exam payload.
type StartExamRequest struct {
	CandidateID string `json:"candidate_id" binding:"required,min=1,max=128"`
	AccessCode  string `json:"access_code"`
}

// questionView is the client-safe projection of a question. Answer keys
// never leave the server.
type questionView struct {
	ID          int                `json:"id"`
	Type        model.QuestionType `json:"type"`
	Title       string             `json:"title"`
	Options     []string           `json:"options,omitempty"`
	TestCases   []model.TestCase   `json:"test_cases,omitempty"`
	Constraints []string           `json:"constraints,omitempty"`
}

func toViews(questions []model.Question) []questionView {
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, questionView{
			ID:          q.ID,
			Type:        q.Type,
			Title:       q.Title,
			Options:     q.Options,
			TestCases:   q.TestCases,
			Constraints: q.Constraints,
		})
	}
	return views
}

// StartExam godoc
// POST /api/v1/exam/start
// Verifies the access code, resolves (or creates) the candidate's exam
// session and returns a scoped token. Rejoining is idempotent.
func (h *ExamHandler) StartExam(c *gin.Context) {
	var req StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.VerifyAccessCode(req.AccessCode); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidAccessCode)
		return
	}

	rt, err := h.manager.StartExam(c.Request.Context(), req.CandidateID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token, err := h.authService.IssueToken(rt.ExamID, req.CandidateID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	sess, err := rt.Store.Session(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_id":    rt.ExamID,
		"token":      token,
		"status":     sess.Status,
		"start_time": sess.StartTime,
	})
}

// GetSectionQuestions godoc
// GET /api/v1/exam/sections/:section/questions
// Serves the section batch from cache, or streams it from the generator on
// first access. Always returns questions; the mock bank backstops failures.
func (h *ExamHandler) GetSectionQuestions(c *gin.Context) {
	rt, ok := h.resolveRuntime(c)
	if !ok {
		return
	}

	section := model.Section(c.Param("section"))
	if !model.ValidSection(section) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSection)
		return
	}

	result, err := rt.Source.GetOrLoad(c.Request.Context(), section, nil)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"section":   section,
		"source":    result.Source,
		"count":     len(result.Questions),
		"questions": toViews(result.Questions),
	})
}

// GenerateMoreQuestions godoc
// POST /api/v1/exam/sections/:section/questions/more
// Tops up an incomplete section batch with a fresh generation round.
// Existing questions are kept; only unseen titles are appended.
func (h *ExamHandler) GenerateMoreQuestions(c *gin.Context) {
	rt, ok := h.resolveRuntime(c)
	if !ok {
		return
	}
	if !h.requireInProgress(c, rt) {
		return
	}

	section := model.Section(c.Param("section"))
	if !model.ValidSection(section) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSection)
		return
	}

	result, err := rt.Source.GenerateMore(c.Request.Context(), section, nil)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"section":   section,
		"source":    result.Source,
		"count":     len(result.Questions),
		"questions": toViews(result.Questions),
	})
}

// GetState godoc
// GET /api/v1/exam/state
// Returns the session's progress summary: status, per-section load state,
// violation counters and elapsed time.
func (h *ExamHandler) GetState(c *gin.Context) {
	rt, ok := h.resolveRuntime(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sess, err := rt.Store.Session(ctx)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	allLoaded, err := rt.Store.AllSectionsLoaded(ctx)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	sectionCounts := make(map[model.Section]int, len(model.Sections))
	for _, section := range model.Sections {
		sectionCounts[section] = len(sess.Sections[section])
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_id":             sess.ExamID,
		"status":              sess.Status,
		"start_time":          sess.StartTime,
		"elapsed_seconds":     int64(time.Since(sess.StartTime).Seconds()),
		"all_sections_loaded": allLoaded,
		"section_counts":      sectionCounts,
		"violation_counts":    rt.Violations.Counts(),
		"termination_reason":  sess.TerminationReason,
	})
}

// SubmitExam godoc
// POST /api/v1/exam/submit
// Finalizes the session as completed and returns the graded result. A
// second submit, or a submit after termination, fails.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	rt, ok := h.resolveRuntime(c)
	if !ok {
		return
	}
	if !h.requireInProgress(c, rt) {
		return
	}

	result, err := rt.Termination.Submit(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusConflict, response.ErrExamFinished)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ResetExam godoc
// POST /api/v1/exam/reset
// Tears the runtime down and clears all session state so the next start
// begins a fresh attempt.
func (h *ExamHandler) ResetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.manager.EndExam(c.Request.Context(), claims.ExamID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam session cleared"})
}

// resolveRuntime maps the token's exam id to its active runtime, rebuilding
// it after a server restart. A cleared session yields ErrNoSession since the
// rebuilt runtime would carry a fresh exam id.
func (h *ExamHandler) resolveRuntime(c *gin.Context) (*service.Runtime, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	if rt, ok := h.manager.Get(claims.ExamID); ok {
		return rt, true
	}

	rt, err := h.manager.StartExam(c.Request.Context(), claims.CandidateID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return nil, false
	}
	if rt.ExamID != claims.ExamID {
		response.Fail(c, http.StatusGone, response.ErrNoSession)
		return nil, false
	}
	return rt, true
}

// requireInProgress rejects mutating calls against a finalized session.
func (h *ExamHandler) requireInProgress(c *gin.Context, rt *service.Runtime) bool {
	sess, err := rt.Store.Session(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return false
	}
	switch sess.Status {
	case model.SessionStatusViolated:
		response.Fail(c, http.StatusForbidden, response.ErrExamTerminated)
		return false
	case model.SessionStatusCompleted:
		response.Fail(c, http.StatusConflict, response.ErrExamFinished)
		return false
	}
	return true
}
