package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulalink/gradebook-api/internal/models"
	"github.com/aulalink/gradebook-api/internal/service"
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"
	"github.com/aulalink/gradebook-api/pkg/response"
)

// StudentHandler exposes student roster endpoints.
type StudentHandler struct {
	students *service.StudentService
	auth     *service.AuthService
	reports  *service.ReportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, auth *service.AuthService, reports *service.ReportService) *StudentHandler {
	return &StudentHandler{students: students, auth: auth, reports: reports}
}

// List godoc
// @Summary List students of a teacher
// @Tags Students
// @Produce json
// @Param teacherId query string false "Teacher ID (admins only; teachers always see their own roster)"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	teacherID := claims.PrincipalID
	if claims.Role == models.RoleAdmin {
		teacherID = c.Query("teacherId")
		if teacherID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacherId query parameter required"))
			return
		}
	}

	students, err := h.students.List(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Create godoc
// @Summary Register a student on the caller's roster
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	ownerTeacherID := claims.PrincipalID
	if claims.Role == models.RoleAdmin {
		ownerTeacherID = c.Query("teacherId")
		if ownerTeacherID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacherId query parameter required"))
			return
		}
	}

	student, err := h.auth.RegisterStudent(c.Request.Context(), req, ownerTeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update student name and grade level
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student without dependent records
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transfer godoc
// @Summary Transfer a student to another teacher
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.TransferStudentRequest true "Transfer payload"
// @Success 204
// @Router /students/{id}/transfer [post]
func (h *StudentHandler) Transfer(c *gin.Context) {
	var req service.TransferStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transfer payload"))
		return
	}
	if err := h.students.Transfer(c.Request.Context(), claimsFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Get the report card for a grading term
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param year query string true "School year"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report [get]
func (h *StudentHandler) Report(c *gin.Context) {
	card, err := h.reports.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Query("year"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// ExportReport godoc
// @Summary Export the report card as CSV or PDF
// @Tags Students
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param year query string true "School year"
// @Param period query string true "Grading period"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /students/{id}/report/export [get]
func (h *StudentHandler) ExportReport(c *gin.Context) {
	claims := claimsFromContext(c)
	id := c.Param("id")
	year := c.Query("year")
	period := c.Query("period")

	var (
		payload     []byte
		filename    string
		contentType string
		err         error
	)
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		payload, filename, err = h.reports.ExportCSV(c.Request.Context(), claims, id, year, period)
		contentType = "text/csv"
	case "pdf":
		payload, filename, err = h.reports.ExportPDF(c.Request.Context(), claims, id, year, period)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
