package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const maxBodyBytes = 1 << 20

// UnauthorizedMessage is the body of every 401 the service returns.
const UnauthorizedMessage = "Unauthorized"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default().Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps err to a status code. Upstream details are logged, never sent: the client gets upstreamMsg.
func respondError(w http.ResponseWriter, r *http.Request, logger *log.Logger, err error, upstreamMsg string) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, UnauthorizedMessage)
	case errors.Is(err, shared.ErrValidation):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, shared.ErrServiceUnavailable):
		logger.Error("service unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service unavailable")
	default:
		logger.Error(upstreamMsg, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, upstreamMsg)
	}
}

// validationMessage drops the sentinel prefix so clients see only the reason.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": ")
	if msg == "" {
		return shared.ErrValidation.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", shared.ErrValidation)
	}
	return nil
}

// newValidator returns a validator that reports fields by their JSON names and knows the notblank tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validation: %v", err))
	}
	return v
}

// validateStruct runs v over req and converts failures to [shared.ErrValidation].
func validateStruct(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, fieldReason(fe))
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(reasons, "; "))
}

func fieldReason(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
