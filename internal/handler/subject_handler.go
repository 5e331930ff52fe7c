package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulalink/gradebook-api/internal/service"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
	"github.com/aulalink/gradebook-api/pkg/response"
)

// SubjectHandler exposes subject assignment endpoints.
type SubjectHandler struct {
	subjects *service.SubjectService
	grades   *service.GradeService
}

// NewSubjectHandler constructs SubjectHandler.
func NewSubjectHandler(subjects *service.SubjectService, grades *service.GradeService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects, grades: grades}
}

// Assign godoc
// @Summary Assign a subject to a student
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.AssignSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Assign(c *gin.Context) {
	var req service.AssignSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}
	subject, err := h.subjects.Assign(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// List godoc
// @Summary List subjects of a student
// @Tags Subjects
// @Produce json
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	studentID := c.Query("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId query parameter required"))
		return
	}
	subjects, err := h.subjects.ListByStudent(c.Request.Context(), claimsFromContext(c), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Remove godoc
// @Summary Remove a subject and its grades
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *SubjectHandler) Remove(c *gin.Context) {
	if err := h.subjects.Remove(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Periods godoc
// @Summary List grading terms a subject has stored grades for
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/periods [get]
func (h *SubjectHandler) Periods(c *gin.Context) {
	periods, err := h.grades.ListPeriods(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}
