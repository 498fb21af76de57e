package http

import (
	"encoding/json"
	"net/http"

	apperrors "parkly/pkg/errors"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)

	var statusCode int
	switch appErr.Code {
	case apperrors.CodeInvalidInput, apperrors.CodeBadRequest, apperrors.CodeNoCompatibleSlot:
		statusCode = http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		statusCode = http.StatusUnauthorized
	case apperrors.CodeForbidden:
		statusCode = http.StatusForbidden
	case apperrors.CodeNotFound:
		statusCode = http.StatusNotFound
	case apperrors.CodeConflict:
		statusCode = http.StatusConflict
	case apperrors.CodeValidation:
		statusCode = appErr.HTTPStatus
		if statusCode == 0 {
			statusCode = http.StatusUnprocessableEntity
		}
	case apperrors.CodeTimeout:
		statusCode = http.StatusGatewayTimeout
	case apperrors.CodeUnavailable:
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusInternalServerError
	}

	resp := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	if statusCode == http.StatusInternalServerError {
		resp = ErrorResponse{Error: "Internal server error", Code: apperrors.CodeInternal}
	}

	return WriteJSON(w, statusCode, resp)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePaginated(w http.ResponseWriter, data any, totalCount int64, limit int, offset int64) error {
	return WriteJSON(w, http.StatusOK, PaginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	})
}
