package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kukuyard-system/config"
)

// PredictionHTTPHandler forwards poultry disease image classification to
// the external inference service. The service owns the model; this handler
// only relays the upload and the verdict.
type PredictionHTTPHandler struct {
	cfg    config.PredictionConfig
	client *http.Client
	logger *zap.Logger
}

func NewPredictionHTTPHandler(cfg config.PredictionConfig, logger *zap.Logger) *PredictionHTTPHandler {
	return &PredictionHTTPHandler{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

func (h *PredictionHTTPHandler) Predict(c *gin.Context) {
	if h.cfg.ServiceURL == "" {
		c.JSON(http.StatusServiceUnavailable, errorResponse("Prediction service is not configured"))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("An image file is required"))
		return
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("image", header.Filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	url := fmt.Sprintf("%s/predict", h.cfg.ServiceURL)
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, url, pr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error"))
		return
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("prediction service request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse("Prediction service is unavailable"))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Error("prediction service response read failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse("Prediction service is unavailable"))
		return
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), body)
}
