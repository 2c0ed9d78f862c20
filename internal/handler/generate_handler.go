package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pictura/imagegen/internal/handler/middleware"
	"pictura/imagegen/internal/model"
	"pictura/imagegen/internal/service"
	"pictura/imagegen/pkg/response"
)

type GenerateHandler struct {
	generationService service.GenerationService
	logger            *zap.Logger
}

func NewGenerateHandler(generationService service.GenerationService, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{generationService: generationService, logger: logger}
}

type GenerateRequest struct {
	Prompt    string `json:"prompt"`
	RequestID string `json:"requestId"`
}

// Generate starts a generation or reports on one already tracked under the
// supplied requestId.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if id := strings.TrimSpace(req.RequestID); id != "" {
		c.Header(middleware.RequestIDHeader, id)
	}

	status, err := h.generationService.Generate(c.Request.Context(), service.GenerateRequest{
		Prompt:    req.Prompt,
		RequestID: req.RequestID,
	})
	if err != nil {
		var gerr *service.GenerationError
		switch {
		case errors.Is(err, service.ErrPromptRequired):
			response.BadRequest(c, err.Error())
		case errors.As(err, &gerr):
			response.InternalError(c, gerr.Message)
		default:
			h.logger.Error("generate request failed",
				zap.String("request_id", req.RequestID),
				zap.String("client", middleware.ClientName(c)),
				zap.Error(err),
			)
			response.InternalError(c, "failed to process generation request")
		}
		return
	}

	c.Header(middleware.RequestIDHeader, status.RequestID)
	if !status.IsTerminal() {
		response.Pending(c, status.RequestID)
		return
	}
	switch status.State {
	case model.GenerationCompleted:
		if status.Result == nil {
			h.logger.Error("completed status has no result recorded", zap.String("request_id", status.RequestID))
			response.InternalError(c, "image generation failed")
			return
		}
		response.Success(c, status.Result)
	case model.GenerationFailed:
		f := status.Failure
		if f == nil {
			h.logger.Error("failed status has no failure recorded", zap.String("request_id", status.RequestID))
			response.InternalError(c, "image generation failed")
			return
		}
		response.Failure(c, f.Message, string(f.Kind), f.Retryable,
			&response.FailureDetails{Name: string(f.Kind), Cause: f.Cause}, status.UpdatedAt)
	}
}
