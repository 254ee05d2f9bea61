package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/courseloop/hwboard-backend/internal/middleware"
	"github.com/courseloop/hwboard-backend/internal/response"
	"github.com/courseloop/hwboard-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AchievementHandler handles the student achievement item endpoints.
type AchievementHandler struct {
	achievementService *service.AchievementService
}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler(achievementService *service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService}
}

// GetState godoc
// GET /api/v1/student/courses/:course_id/achievements
// Returns the student's remaining achievement item uses.
func (h *AchievementHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID := c.Param("course_id")
	if courseID != claims.CourseID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	state, err := h.achievementService.State(c.Request.Context(), courseID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// ExtendDueDate godoc
// POST /api/v1/student/courses/:course_id/sets/:set_id/extend-due-date
// Spends one DueDateExtension item use on the set.
func (h *AchievementHandler) ExtendDueDate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID := c.Param("course_id")
	setID := c.Param("set_id")
	if courseID != claims.CourseID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	set, err := h.achievementService.ExtendDueDate(c.Request.Context(), courseID, claims.UserID, setID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSetNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSetNotFound)
		case errors.Is(err, service.ErrItemNotHeld):
			response.Fail(c, http.StatusBadRequest, response.ErrItemNotHeld)
		case errors.Is(err, service.ErrSetNotExtendable):
			response.Fail(c, http.StatusBadRequest, response.ErrSetNotExtendable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"set": set})
}
