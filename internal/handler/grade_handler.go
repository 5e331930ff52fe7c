package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulalink/gradebook-api/internal/service"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
	"github.com/aulalink/gradebook-api/pkg/response"
)

// GradeHandler exposes grade grid endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Get godoc
// @Summary Get the grade grid with its summary
// @Tags Grades
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param year query string true "School year"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) Get(c *gin.Context) {
	grid, err := h.grades.GetPeriod(c.Request.Context(), claimsFromContext(c), c.Query("subjectId"), c.Query("year"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Save godoc
// @Summary Save the full grade grid for a subject term
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.SaveGradesRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [put]
func (h *GradeHandler) Save(c *gin.Context) {
	var req service.SaveGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grades payload"))
		return
	}
	grid, err := h.grades.Save(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}
