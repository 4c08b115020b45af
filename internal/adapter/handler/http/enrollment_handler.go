package http

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/middleware/auth"
	"github.com/arisu-sports/lesson-server/internal/usecase"
)

type EnrollmentHandler struct {
	enrollments *usecase.EnrollmentService
	reconcile   *usecase.ReconcileService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewEnrollmentHandler(enrollments *usecase.EnrollmentService, reconcile *usecase.ReconcileService, logger *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollments: enrollments,
		reconcile:   reconcile,
		validate:    validator.New(),
		logger:      logger,
	}
}

type createEnrollmentRequest struct {
	UsesLocker bool   `json:"uses_locker"`
	Gender     string `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Membership string `json:"membership" validate:"omitempty,oneof=GENERAL MERIT DISABLED MULTI_CHILD"`
}

// CreateEnrollment handles POST /api/v1/lessons/:id/enrollments
func (h *EnrollmentHandler) CreateEnrollment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	lessonID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid lesson id",
			"code":  "INVALID_LESSON_ID",
		})
	}

	var req createEnrollmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_FAILED",
		})
	}

	membership := model.MembershipType(req.Membership)
	if req.Membership == "" {
		membership = model.MembershipGeneral
	}

	enrollment, err := h.enrollments.Enroll(c.Request().Context(), usecase.EnrollCommand{
		UserID:     user.UserID,
		LessonID:   lessonID,
		UsesLocker: req.UsesLocker,
		Gender:     model.Gender(req.Gender),
		Membership: membership,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, enrollment)
}

// GetStatus handles GET /api/v1/enrollments/:id/status. When the enrollment
// is still UNPAID past a few poll rounds the client keeps calling this; the
// poll_fallback flag asks the server to check the gateway directly.
func (h *EnrollmentHandler) GetStatus(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	enrollmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid enrollment id",
			"code":  "INVALID_ENROLLMENT_ID",
		})
	}

	if c.QueryParam("verify") == "true" {
		enrollment, err := h.enrollments.GetOwned(c.Request().Context(), enrollmentID, user.UserID)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		if _, err := h.reconcile.VerifyAndSettle(c.Request().Context(), enrollment); err != nil {
			// The poll keeps working off the stored status even when the
			// gateway check fails; log and fall through.
			h.logger.Warn("Poll-side gateway verification failed",
				zap.Int64("enrollment_id", enrollmentID),
				zap.Error(err))
		}
	}

	view, err := h.enrollments.Status(c.Request().Context(), enrollmentID, user.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ListMine handles GET /api/v1/enrollments
func (h *EnrollmentHandler) ListMine(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	enrollments, err := h.enrollments.ListByUser(c.Request().Context(), user.UserID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"enrollments": enrollments,
		"count":       len(enrollments),
	})
}
