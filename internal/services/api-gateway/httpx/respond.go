package httpx

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
)

var marshaler = &runtime.JSONBuiltin{}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Status maps a domain sentinel to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", marshaler.ContentType(v))
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = marshaler.NewEncoder(w).Encode(v)
}

// Error writes err as a JSON body. Internal errors are logged and their
// text is not exposed.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	code := Status(err)
	body := errorBody{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if code == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		body.Error = http.StatusText(code)
	}
	JSON(w, code, body)
}

// Decode reads a JSON body into dst.
func Decode(r *http.Request, dst any) error {
	if err := marshaler.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("body", "request body is required")
		}
		return domain.Invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}

// Int64Param parses a path or query value, reporting bad input as a
// validation error on field.
func Int64Param(field, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.Invalid(field, "must be a positive integer")
	}
	return n, nil
}

// Window reads limit and offset query values; bad values fall back to 0.
func Window(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}
