package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wastevision-service/internal/auth"
	"wastevision-service/internal/config"
	"wastevision-service/internal/domain/account"
	"wastevision-service/internal/domain/waste"
	"wastevision-service/internal/service"
)

type Handler struct {
	identifyService *service.IdentifyService
	accountService  *service.AccountService
	recordService   *service.RecordService
	config          *config.Config
	log             zerolog.Logger
}

func NewHandler(
	identifyService *service.IdentifyService,
	accountService *service.AccountService,
	recordService *service.RecordService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		identifyService: identifyService,
		accountService:  accountService,
		recordService:   recordService,
		config:          cfg,
		log:             log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/", h.status)
	r.GET("/config", h.detectionConfig)
	r.POST("/identify", h.identify)

	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.POST("/register", h.register)
		public.POST("/login", h.login)
	}

	// Protected endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/profile", h.getProfile)
		protected.PUT("/profile", h.updateProfile)
		protected.POST("/save-record", h.saveRecord)
		protected.GET("/user-records", h.listRecords)
		protected.GET("/user-records/:id", h.getRecord)
		protected.DELETE("/user-records/:id", h.deleteRecord)
		protected.GET("/statistics", h.statistics)
	}
}

func (h *Handler) status(c *gin.Context) {
	loaded := h.identifyService.CustomModelLoaded()
	opts := h.identifyService.DetectOptions()

	resp := gin.H{
		"service":              "WasteVision API",
		"status":               "running",
		"custom_model_loaded":  loaded,
		"custom_model_format":  "Not loaded",
		"custom_model_type":    nil,
		"default_model_loaded": true,
		"default_model_type":   "YOLOv5 Object Detection (with bounding boxes)",
		"classes":              waste.Classes(),
		"detection_config": gin.H{
			"confidence_threshold":  opts.Confidence,
			"iou_threshold":         opts.IoU,
			"max_detections":        opts.MaxDetections,
			"preprocessing_enabled": h.identifyService.PreprocessingEnabled(),
		},
	}
	if loaded {
		resp["custom_model_format"] = service.CustomModelFormat
		resp["custom_model_type"] = "Image Classification (entire image)"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) detectionConfig(c *gin.Context) {
	opts := h.identifyService.DetectOptions()
	pre := h.config.Preprocessing

	c.JSON(http.StatusOK, gin.H{
		"detection": gin.H{
			"confidence_threshold": opts.Confidence,
			"iou_threshold":        opts.IoU,
			"max_detections":       opts.MaxDetections,
		},
		"preprocessing": gin.H{
			"enabled":           h.identifyService.PreprocessingEnabled(),
			"max_image_size":    pre.MaxImageSize,
			"contrast_factor":   pre.Contrast,
			"sharpness_factor":  pre.Sharpness,
			"brightness_factor": pre.Brightness,
		},
	})
}

func (h *Handler) identify(c *gin.Context) {
	filename, data, ok := h.readUpload(c, "file")
	if !ok {
		return
	}

	result, err := h.identifyService.Identify(c.Request.Context(), filename, data)
	if err != nil {
		// The message is returned as-is; no model keys on failure.
		h.log.Error().Err(err).Str("file", filename).Msg("failed to process identify request")
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) register(c *gin.Context) {
	var payload account.RegisterPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	user, err := h.accountService.Register(c.Request.Context(), payload)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *Handler) login(c *gin.Context) {
	var payload account.LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	token, user, err := h.accountService.Login(c.Request.Context(), payload)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (h *Handler) getProfile(c *gin.Context) {
	user, err := h.accountService.Profile(c.Request.Context(), c.GetString(auth.ContextUserID))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(user))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var update account.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	user, err := h.accountService.UpdateProfile(c.Request.Context(), c.GetString(auth.ContextUserID), update)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"data":    user,
	})
}

func (h *Handler) saveRecord(c *gin.Context) {
	filename, data, ok := h.readUpload(c, "image")
	if !ok {
		return
	}

	payload := account.RecordPayload{
		WasteType:           strings.TrimSpace(c.PostForm("waste_type")),
		Category:            strings.TrimSpace(c.PostForm("category")),
		Recyclable:          parseBool(c.PostForm("recyclable")),
		DisposalMethod:      c.PostForm("disposal_method"),
		Description:         c.PostForm("description"),
		ImageFilename:       filename,
		ImageData:           data,
		DetectedImageBase64: c.PostForm("detected_image_base64"),
	}
	if raw := strings.TrimSpace(c.PostForm("confidence")); raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("confidence must be a number"))
			return
		}
		payload.Confidence = conf
	}

	record, err := h.recordService.Save(c.Request.Context(), c.GetString(auth.ContextUserID), payload)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) listRecords(c *gin.Context) {
	records, err := h.recordService.List(c.Request.Context(), c.GetString(auth.ContextUserID))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) getRecord(c *gin.Context) {
	record, err := h.recordService.Get(c.Request.Context(), c.GetString(auth.ContextUserID), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) deleteRecord(c *gin.Context) {
	if err := h.recordService.Delete(c.Request.Context(), c.GetString(auth.ContextUserID), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) statistics(c *gin.Context) {
	stats, err := h.recordService.Statistics(c.Request.Context(), c.GetString(auth.ContextUserID))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

// readUpload reads one multipart file, writing a 400 (or 413) response and
// returning false when it is missing or too large.
func (h *Handler) readUpload(c *gin.Context, field string) (string, []byte, bool) {
	if limit := h.config.Server.MaxUploadMB; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit<<20)
	}

	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse("upload too large"))
			return "", nil, false
		}
		c.JSON(http.StatusBadRequest, errorResponse(field+" is required"))
		return "", nil, false
	}

	f, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Str("field", field).Msg("failed to open upload")
		c.JSON(http.StatusBadRequest, errorResponse("cannot read upload"))
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.log.Error().Err(err).Str("field", field).Msg("failed to read upload")
		c.JSON(http.StatusBadRequest, errorResponse("cannot read upload"))
		return "", nil, false
	}
	return header.Filename, data, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}
