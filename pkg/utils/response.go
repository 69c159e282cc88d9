package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator adds notblank, which rejects whitespace-only strings.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// RespondJSON writes payload as a JSON body with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// DecodeJSON reads a bounded JSON body into dst and runs struct validation.
// The returned error is safe to show to the client.
func DecodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	return Validate(dst)
}

// Validate runs go-playground validation and flattens the field errors.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
