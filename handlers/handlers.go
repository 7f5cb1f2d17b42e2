package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"kshetranetra/models"
	"kshetranetra/service"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
)

// SessionHeader carries the session ID between the client and the backend.
// A missing or unknown ID gets a fresh session, echoed back in the response.
const SessionHeader = "X-Session-ID"

const maxUploadBytes = 32 << 20

// PipelineHandler exposes the detection pipeline over HTTP
type PipelineHandler struct {
	pipeline *service.Pipeline
}

// NewPipelineHandler creates a new handler instance
func NewPipelineHandler(pipeline *service.Pipeline) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

// HealthCheck returns a simple health status
func (h *PipelineHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "kshetranetra",
	})
}

// session resolves the request's session and echoes its ID back
func (h *PipelineHandler) session(c *gin.Context) *service.Session {
	sess := h.pipeline.Session(c.GetHeader(SessionHeader))
	c.Header(SessionHeader, sess.ID)
	return sess
}

// SearchRequest is the body of POST /aoi/search
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// SearchAOI resolves a free-text place query to a point AOI
func (h *PipelineHandler) SearchAOI(c *gin.Context) {
	sess := h.session(c)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	area, err := h.pipeline.ResolveAOI(c.Request.Context(), sess.ID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrLocationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found."})
		case errors.Is(err, models.ErrGeocodeUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Geocoding service unavailable. Try again later."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Search failed: %v", err)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"aoi": area})
}

// DrawAOI accepts the GeoJSON geometry produced by the map widget's draw
// gesture and stores the normalized AOI
func (h *PipelineHandler) DrawAOI(c *gin.Context) {
	sess := h.session(c)

	var geometry geojson.Geometry
	if err := c.ShouldBindJSON(&geometry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}

	area, err := h.pipeline.SetDrawnAOI(sess.ID, &geometry)
	if err != nil {
		log.WithError(err).Warn("Rejected drawn geometry")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported AOI geometry: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"aoi": area})
}

// UploadImage stores an uploaded image for the slot named in the URL
// ("t1" or "t2"). Only meaningful when the upload provider is active.
func (h *PipelineHandler) UploadImage(c *gin.Context) {
	sess := h.session(c)

	slot := c.Param("slot")
	if slot != "t1" && slot != "t2" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown image slot, want t1 or t2"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file: " + err.Error()})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image file: " + err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image file: " + err.Error()})
		return
	}

	label := "T1"
	if slot == "t2" {
		label = "T2"
	}
	if err := h.pipeline.StoreUpload(sess.ID, label, file.Filename, data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Rejected upload: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slot": label, "filename": file.Filename})
}

// MomentPayload is one capture-moment selection as the date/time pickers
// produce it
type MomentPayload struct {
	Date     string `json:"date" binding:"required"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Meridiem string `json:"meridiem" binding:"required"`
}

// DetectRequest is the body of POST /detect
type DetectRequest struct {
	T1 MomentPayload `json:"t1" binding:"required"`
	T2 MomentPayload `json:"t2" binding:"required"`
}

// RunDetection executes a detection run and returns the report metadata
func (h *PipelineHandler) RunDetection(c *gin.Context) {
	sess := h.session(c)

	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	t1, err := models.NewCaptureMoment("T1", req.T1.Date, req.T1.Hour, req.T1.Minute, req.T1.Meridiem)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid T1 selection: " + err.Error()})
		return
	}
	t2, err := models.NewCaptureMoment("T2", req.T2.Date, req.T2.Hour, req.T2.Minute, req.T2.Meridiem)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid T2 selection: " + err.Error()})
		return
	}

	rep, err := h.pipeline.RunDetection(c.Request.Context(), sess.ID, t1, t2)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingAOI):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please select an AOI and T1/T2 dates first."})
		case errors.Is(err, models.ErrImageUnavailable):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Image unavailable: %v", err)})
		case errors.Is(err, models.ErrDimensionMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot compare images: %v", err)})
		default:
			log.WithError(err).Error("Detection run failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Detection run failed: %v", err)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": rep.Meta})
}

// DownloadReport streams the session's current report as a PDF download
func (h *PipelineHandler) DownloadReport(c *gin.Context) {
	sess := h.session(c)

	rep, err := h.pipeline.LastReport(sess.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No PDF generated yet. Please run Change Detection first."})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="kshetranetra_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", rep.Bytes)
}

// EmailRequest is the body of POST /report/email
type EmailRequest struct {
	Recipient string `json:"recipient"`
}

// EmailReport sends the session's current report to the recipient. Failures
// are classified and always surfaced as text.
func (h *PipelineHandler) EmailReport(c *gin.Context) {
	sess := h.session(c)

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.pipeline.SendReport(c.Request.Context(), sess.ID, req.Recipient)
	if err != nil {
		var sendErr *models.SendError
		switch {
		case errors.Is(err, models.ErrEmptyRecipient):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a recipient email first."})
		case errors.Is(err, models.ErrNoReport):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No PDF generated yet. Please run Change Detection first."})
		case errors.As(err, &sendErr):
			status := http.StatusBadGateway
			if sendErr.Kind == models.SendRecipient {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": fmt.Sprintf("Failed to send email (%s): %v", sendErr.Kind, sendErr.Err)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to send email: %v", err)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
