package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/farmerhub/marketplace-api/internal/services"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: kind, Message: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Success: true, Message: message})
}

func badRequest(format string, args ...any) error {
	return &services.Error{Kind: services.ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a size-limited JSON body into dst and validates its
// struct tags. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("Request body is too large")
		}
		return badRequest("Invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return badRequest("%s is required", fe.Field())
		case "email":
			return badRequest("%s must be a valid email address", fe.Field())
		case "min", "gte":
			return badRequest("%s must be at least %s", fe.Field(), fe.Param())
		}
		return badRequest("%s is invalid", fe.Field())
	}
	return badRequest("Invalid request body")
}

// pathID parses a numeric route variable
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid %s", name)
	}
	return id, nil
}

// handleError maps service errors to HTTP responses. Unclassified errors are
// logged and reported as a generic server error.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, services.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "authentication_error"
	case errors.Is(err, services.ErrForbidden):
		status, kind = http.StatusForbidden, "authorization_error"
	case errors.Is(err, services.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	default:
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}
	writeError(w, status, kind, err.Error())
}
