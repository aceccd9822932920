package httpapi

import (
	"errors"
	"net/http"
	"time"

	"results-hotline/internal/audit"
	"results-hotline/internal/clinic"
	"results-hotline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Repo      clinic.Repository
	Audit     *audit.Service
	validator *validator.Validate
}

func NewHandlers(repo clinic.Repository, auditSvc *audit.Service) *Handlers {
	h := &Handlers{
		Repo:      repo,
		Audit:     auditSvc,
		validator: validator.New(),
	}
	h.registerValidations()
	return h
}

func (h *Handlers) registerValidations() {
	// Clinic codes are short uppercase identifiers spoken to clinic staff.
	h.validator.RegisterValidation("clinic_code", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) < 2 || len(s) > 10 {
			return false
		}
		for _, r := range s {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return false
			}
		}
		return true
	})

	// Credentials are keypad entries; digits only.
	h.validator.RegisterValidation("keypad", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
}

// --- Clinics ---

type clinicRequest struct {
	Code         string `json:"code" validate:"required,clinic_code"`
	Name         string `json:"name" validate:"required"`
	HoursEnglish string `json:"hours_english" validate:"required"`
	HoursSpanish string `json:"hours_spanish"`
}

type clinicResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	HoursEnglish string `json:"hours_english"`
	HoursSpanish string `json:"hours_spanish"`
	Deleted      bool   `json:"deleted"`
}

func toClinicResponse(c clinic.Clinic) clinicResponse {
	return clinicResponse{
		ID:           c.ID,
		Code:         c.Code,
		Name:         c.Name,
		HoursEnglish: c.HoursEnglish,
		HoursSpanish: c.HoursSpanish,
		Deleted:      c.Deleted(),
	}
}

func (h *Handlers) CreateClinic(c *gin.Context) {
	var req clinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.Repo.CreateClinic(c.Request.Context(), clinic.Clinic{
		Code:         req.Code,
		Name:         req.Name,
		HoursEnglish: req.HoursEnglish,
		HoursSpanish: req.HoursSpanish,
	})
	if err != nil {
		h.writeRepoError(c, err)
		return
	}

	h.logClinic(c, created.ID, "clinic created")
	c.JSON(http.StatusCreated, toClinicResponse(created))
}

func (h *Handlers) UpdateClinic(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}
	var req clinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Repo.UpdateClinic(c.Request.Context(), clinic.Clinic{
		ID:           id,
		Code:         req.Code,
		Name:         req.Name,
		HoursEnglish: req.HoursEnglish,
		HoursSpanish: req.HoursSpanish,
	})
	if err != nil {
		h.writeRepoError(c, err)
		return
	}

	h.logClinic(c, updated.ID, "clinic updated")
	c.JSON(http.StatusOK, toClinicResponse(updated))
}

func (h *Handlers) DeleteClinic(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}
	if err := h.Repo.SoftDeleteClinic(c.Request.Context(), id); err != nil {
		h.writeRepoError(c, err)
		return
	}

	h.logClinic(c, id, "clinic deleted")
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ListClinics(c *gin.Context) {
	includeDeleted := c.Query("include_deleted") == "true"
	clinics, err := h.Repo.ListClinics(c.Request.Context(), includeDeleted)
	if err != nil {
		h.writeRepoError(c, err)
		return
	}

	out := make([]clinicResponse, 0, len(clinics))
	for _, cl := range clinics {
		out = append(out, toClinicResponse(cl))
	}
	c.JSON(http.StatusOK, gin.H{"clinics": out})
}

// --- Visits ---

type createVisitRequest struct {
	ClinicCode    string `json:"clinic_code" validate:"required,clinic_code"`
	PatientNumber string `json:"patient_number" validate:"required"`
	Username      string `json:"username" validate:"required,keypad"`
	Password      string `json:"password" validate:"required,keypad"`
	VisitDate     string `json:"visit_date" validate:"required"`
}

func (h *Handlers) CreateVisit(c *gin.Context) {
	var req createVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	visitDate, err := time.Parse("2006-01-02", req.VisitDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "visit_date must be YYYY-MM-DD"})
		return
	}

	cl, err := h.Repo.FindClinicByCode(c.Request.Context(), req.ClinicCode, false)
	if err != nil {
		h.writeRepoError(c, err)
		return
	}

	created, err := h.Repo.CreateVisit(c.Request.Context(), clinic.Visit{
		ClinicID:      cl.ID,
		PatientNumber: req.PatientNumber,
		Username:      req.Username,
		Password:      req.Password,
		VisitDate:     visitDate,
	})
	if err != nil {
		h.writeRepoError(c, err)
		return
	}

	if h.Audit != nil {
		if aerr := h.Audit.LogVisitAction(c.Request.Context(), created.ID, c.ClientIP(), "visit created", ""); aerr != nil {
			logger.FromGin(c).Warn("audit append failed", "err", aerr)
		}
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             created.ID,
		"clinic_id":      created.ClinicID,
		"patient_number": created.PatientNumber,
		"username":       created.Username,
		"visit_date":     created.VisitDate.UTC().Format("2006-01-02"),
	})
}

func (h *Handlers) writeRepoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, clinic.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, clinic.ErrDuplicate):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate"})
	case errors.Is(err, clinic.ErrCodeImmutable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "clinic code is immutable"})
	case errors.Is(err, clinic.ErrInvalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("repository failure", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// logClinic appends an audit event; failures are logged, never surfaced.
func (h *Handlers) logClinic(c *gin.Context, clinicID, message string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogClinicAction(c.Request.Context(), clinicID, c.ClientIP(), message, ""); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}
