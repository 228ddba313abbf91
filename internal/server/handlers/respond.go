package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/apperror"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type sideEffectBody struct {
	Effect string `json:"effect"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error"`
}

// writeError maps service errors onto HTTP responses. Unknown errors are
// logged and hidden behind a 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		appErr = apperror.NewInternal(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	} else {
		logger.Debug("request rejected",
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code))
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{"error": errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

func bindError(c *gin.Context, logger *zap.Logger, err error) {
	writeError(c, logger, apperror.NewValidation("invalid request body").WithDetail("reason", err.Error()))
}

func sideEffects(effects apperror.SideEffects) []sideEffectBody {
	out := make([]sideEffectBody, 0, len(effects.Failures))
	for _, f := range effects.Failures {
		out = append(out, sideEffectBody{Effect: f.Effect, Target: f.Target, Error: f.Err.Error()})
	}
	return out
}
