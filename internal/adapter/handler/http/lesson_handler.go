package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/usecase"
)

type LessonHandler struct {
	enrollments *usecase.EnrollmentService
	logger      *zap.Logger
}

func NewLessonHandler(enrollments *usecase.EnrollmentService, logger *zap.Logger) *LessonHandler {
	return &LessonHandler{
		enrollments: enrollments,
		logger:      logger,
	}
}

// ListLessons handles GET /api/v1/lessons
func (h *LessonHandler) ListLessons(c echo.Context) error {
	status := model.LessonStatus(c.QueryParam("status"))
	if status == "" {
		status = model.LessonStatusOpen
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	lessons, err := h.enrollments.ListLessons(c.Request().Context(), status, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"lessons": lessons,
		"count":   len(lessons),
	})
}

// GetLesson handles GET /api/v1/lessons/:id
func (h *LessonHandler) GetLesson(c echo.Context) error {
	lessonID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid lesson id",
			"code":  "INVALID_LESSON_ID",
		})
	}

	lesson, err := h.enrollments.GetLesson(c.Request().Context(), lessonID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, lesson)
}

// GetAvailability handles GET /api/v1/lessons/:id/availability. The counts
// are informational; the reservation itself re-checks capacity atomically.
func (h *LessonHandler) GetAvailability(c echo.Context) error {
	lessonID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid lesson id",
			"code":  "INVALID_LESSON_ID",
		})
	}

	availability, err := h.enrollments.Availability(c.Request().Context(), lessonID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, availability)
}
