package server

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"bulliondeals/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// Request errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("catalog unavailable")
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func replyJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(ctx).Error("failed to encode reply", logger.Err(err))
	}
}

func replyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		replyJSON(ctx, w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: err.Error()})
	case errors.Is(err, ErrUnavailable):
		logger.FromContext(ctx).Warn("catalog unavailable", logger.Err(err))
		replyJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Code: "unavailable", Message: "catalog is not available"})
	default:
		logger.FromContext(ctx).Error("request failed", logger.Err(err))
		replyJSON(ctx, w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal error"})
	}
}
