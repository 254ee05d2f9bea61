package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/courseloop/hwboard-backend/internal/middleware"
	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/courseloop/hwboard-backend/internal/response"
	"github.com/courseloop/hwboard-backend/internal/service"
	"github.com/courseloop/hwboard-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// SubmissionHandler handles the student submission endpoints and the
// instructor's view of the audit trail.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// Submit godoc
// POST /api/v1/student/courses/:course_id/sets/:set_id/problems/:problem_id/submit
// Records a graded attempt and fans out score notifications.
// ?practice=true submits for feedback only, without recording.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID, setID, problemID, ok := attemptKey(c, claims.CourseID)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	opts := service.RecordOptions{
		Practice: c.Query("practice") == "true",
		Role:     claims.Role,
	}

	outcome, err := h.submissionService.Record(
		c.Request.Context(), courseID, claims.UserID, setID, problemID, &req, time.Now(), opts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrSetNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// StickyAnswers godoc
// GET /api/v1/student/courses/:course_id/sets/:set_id/problems/:problem_id/answers/last
// Returns the decoded sticky answers for re-populating the form.
func (h *SubmissionHandler) StickyAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID, setID, problemID, ok := attemptKey(c, claims.CourseID)
	if !ok {
		return
	}

	entries, err := h.submissionService.StickyAnswers(c.Request.Context(), courseID, claims.UserID, setID, problemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrProblemNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if entries == nil {
		entries = []model.ReplayEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"answers": entries})
}

// PastAnswers godoc
// GET /api/v1/instructor/courses/:course_id/users/:user_id/sets/:set_id/problems/:problem_id/past-answers
// Lists the immutable audit trail for one student's problem attempt.
func (h *SubmissionHandler) PastAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID, setID, problemID, ok := attemptKey(c, claims.CourseID)
	if !ok {
		return
	}
	userID := c.Param("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	answers, total, err := h.submissionService.PastAnswers(
		c.Request.Context(), courseID, userID, setID, problemID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if answers == nil {
		answers = []model.PastAnswer{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"past_answers": answers}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// attemptKey pulls the (course, set, problem) key out of the URL and checks
// the course against the token. Sends the error response itself on failure.
func attemptKey(c *gin.Context, tokenCourseID string) (courseID, setID string, problemID int, ok bool) {
	courseID = c.Param("course_id")
	setID = c.Param("set_id")
	if courseID != tokenCourseID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return "", "", 0, false
	}

	problemID, err := strconv.Atoi(c.Param("problem_id"))
	if err != nil || problemID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", "", 0, false
	}
	return courseID, setID, problemID, true
}
