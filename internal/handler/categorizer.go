package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"categorizer/internal/models"
	"categorizer/internal/orchestrator"
)

// Orchestrator is the slice of the lifecycle orchestrator the HTTP
// facade needs.
type Orchestrator interface {
	Predict(text string) (*models.PredictResponse, error)
	FullTrain(ctx context.Context) (bool, error)
	IncrementalTrain(ctx context.Context) (bool, error)
	Status() models.StatusResponse
	ModelInfo() (models.ModelInfoResponse, error)
	CategoriesCount() int
	IsTraining() bool
	ModelLoaded() bool
}

// CategorizerHandler translates HTTP requests into orchestrator calls
// and orchestrator errors into status codes.
type CategorizerHandler struct {
	orch   Orchestrator
	logger *zap.Logger
}

// NewCategorizerHandler creates a new categorizer handler.
func NewCategorizerHandler(orch Orchestrator, logger *zap.Logger) *CategorizerHandler {
	return &CategorizerHandler{orch: orch, logger: logger}
}

// Predict classifies an expense description.
// POST /api/v1/predict
func (h *CategorizerHandler) Predict(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.orch.Predict(req.Text)
	if err != nil {
		h.predictError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategorizerHandler) predictError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrTrainingBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model is training, retry shortly"})
	case errors.Is(err, orchestrator.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is empty after normalization"})
	case errors.Is(err, orchestrator.ErrModelNotLoaded):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "model not loaded"})
	default:
		h.logger.Error("Prediction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
	}
}

// ForceRetrain triggers a full or incremental retrain and waits for it
// to finish. A concurrent training run is reported as a no-op, not an
// error. An incremental retrain that finds no new data is a success
// with a distinct message.
// POST /api/v1/retrain
func (h *CategorizerHandler) ForceRetrain(c *gin.Context) {
	var req struct {
		Full bool `json:"full"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var trained bool
	var err error
	if req.Full {
		trained, err = h.orch.FullTrain(c.Request.Context())
	} else {
		trained, err = h.orch.IncrementalTrain(c.Request.Context())
	}

	resp := models.StatusResponse{
		CategoriesCount: h.orch.CategoriesCount(),
		IsTraining:      h.orch.IsTraining(),
	}

	switch {
	case errors.Is(err, orchestrator.ErrTrainingBusy):
		resp.Success = false
		resp.Message = "training already in progress"
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, orchestrator.ErrEmptyCorpus):
		resp.Success = false
		resp.Message = "no training examples in store"
		c.JSON(http.StatusOK, resp)
	case err != nil:
		h.logger.Error("Retraining failed", zap.Error(err), zap.Bool("full", req.Full))
		resp.Success = false
		resp.Message = err.Error()
		status := http.StatusInternalServerError
		if errors.Is(err, orchestrator.ErrStoreUnavailable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, resp)
	case req.Full:
		resp.Success = true
		resp.Message = "full retraining completed"
		c.JSON(http.StatusOK, resp)
	case trained:
		resp.Success = true
		resp.Message = "incremental training completed"
		c.JSON(http.StatusOK, resp)
	default:
		resp.Success = true
		resp.Message = "no new data"
		c.JSON(http.StatusOK, resp)
	}
}

// GetStatus reports service state without touching training.
// GET /api/v1/status
func (h *CategorizerHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Status())
}

// GetModelInfo reports the persisted model location and last training
// metadata.
// GET /api/v1/model/info
func (h *CategorizerHandler) GetModelInfo(c *gin.Context) {
	info, err := h.orch.ModelInfo()
	if err != nil {
		h.logger.Error("Failed to read model metadata", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read model metadata"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Health reports liveness and whether a model is loaded.
// GET /api/v1/health
func (h *CategorizerHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": h.orch.ModelLoaded(),
		"is_training":  h.orch.IsTraining(),
	})
}
