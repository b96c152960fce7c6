package api

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academic_advisor/internal/models"
	"academic_advisor/internal/service"
	"academic_advisor/internal/store"
	"academic_advisor/internal/transcript"
)

func (h *handler) handleHealth(c *gin.Context) {
	database := "not_configured"
	if h.storeConfigured {
		database = "connected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "Academic Advisor API",
		"version":   version,
		"timestamp": time.Now().Format(time.RFC3339),
		"dependencies": gin.H{
			"database": database,
		},
	})
}

// analyzeRequest is the wire form of service.AnalyzeRequest. Observation
// and GPA rows decode leniently so one garbled field only affects its row.
type analyzeRequest struct {
	StudentID    string                   `json:"student_id"`
	ProgramCode  string                   `json:"program_code" binding:"required"`
	Observations []transcript.Observation `json:"observations"`
	GPAHistory   []transcript.GPARow      `json:"gpa_history"`
	Standing     *models.Standing         `json:"standing,omitempty"`
	TargetGPA    *float64                 `json:"target_gpa,omitempty" binding:"omitempty,gte=0,lte=4"`
	Persist      bool                     `json:"persist,omitempty"`
}

func (r *analyzeRequest) toService() service.AnalyzeRequest {
	req := service.AnalyzeRequest{
		StudentID:    r.StudentID,
		ProgramCode:  r.ProgramCode,
		Observations: transcript.BatchOf(r.Observations),
		Standing:     r.Standing,
		TargetGPA:    r.TargetGPA,
		Persist:      r.Persist,
	}
	if r.GPAHistory != nil {
		req.GPAHistory = transcript.HistoryOf(r.GPAHistory)
	}
	return req
}

func (h *handler) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	result, err := h.advisor.Analyze(c.Request.Context(), req.toService())
	if err != nil {
		h.sendServiceError(c, err, "Failed to analyze transcript")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) handleListCatalogs(c *gin.Context) {
	codes, err := h.advisor.Catalogs(c.Request.Context())
	if err != nil {
		h.sendServiceError(c, err, "Failed to list catalogs")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"catalogs": codes,
	})
}

func (h *handler) handleGetCatalog(c *gin.Context) {
	cat, err := h.advisor.Catalog(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.sendServiceError(c, err, "Failed to load catalog")
		return
	}
	c.JSON(http.StatusOK, cat)
}

// handleImportTranscript accepts a JSON transcript document or, with a
// text/csv content type, a CSV observation export.
func (h *handler) handleImportTranscript(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("id"))
	program := c.Query("program")

	var (
		st  store.Student
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "text/csv" {
		batch, decodeErr := transcript.DecodeCSV(c.Request.Body)
		if decodeErr != nil {
			sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse transcript", decodeErr.Error())
			return
		}
		st, err = h.advisor.ImportBatch(c.Request.Context(), store.Student{ID: studentID, ProgramCode: program}, batch, nil)
	} else {
		doc, decodeErr := transcript.Decode(c.Request.Body)
		if decodeErr != nil {
			sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse transcript", decodeErr.Error())
			return
		}
		if doc.StudentID != "" && doc.StudentID != studentID {
			sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "student_id does not match the path", doc.StudentID)
			return
		}
		doc.StudentID = studentID
		st, err = h.advisor.ImportTranscript(c.Request.Context(), doc, program)
	}
	if err != nil {
		h.sendServiceError(c, err, "Failed to import transcript")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"student": st,
	})
}

func (h *handler) handleLatestPlan(c *gin.Context) {
	rec, err := h.advisor.LatestPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sendServiceError(c, err, "Failed to load plan")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", rec.Body)
}

// sendServiceError maps advisor errors onto the JSON error envelope.
func (h *handler) sendServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		sendError(c, http.StatusUnprocessableEntity, "CONFIGURATION_ERROR", message, err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		sendError(c, http.StatusBadRequest, "INVALID_REQUEST", message, err.Error())
	case errors.Is(err, service.ErrUnknownProgram):
		sendError(c, http.StatusNotFound, "UNKNOWN_PROGRAM", message, err.Error())
	case errors.Is(err, store.ErrNotFound):
		sendError(c, http.StatusNotFound, "NOT_FOUND", message, err.Error())
	default:
		h.logger.Error(message, zap.Error(err), zap.String("path", c.Request.URL.Path))
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
	}
}

// sendError writes the JSON error envelope.
func sendError(c *gin.Context, statusCode int, errorCode, message, details string) {
	c.JSON(statusCode, gin.H{
		"status":     "error",
		"error_code": errorCode,
		"message":    message,
		"details":    details,
	})
}
