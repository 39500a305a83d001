package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/gtclicks/ledger-backend/pkg/errors"
)

// ParseQueryInt reads an optional bounded integer query parameter.
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be an integer", nil)
	}
	if value < lo || value > hi {
		return 0, queryError(key, "out of range", map[string]any{"min": lo, "max": hi})
	}
	return value, nil
}

// ParseQueryBool reads an optional boolean query parameter.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(key, "must be true or false", nil)
	}
	return value, nil
}

// ParseQueryEnum reads an optional enum query parameter. Values are upper
// cased before isValid is consulted; an absent parameter returns "".
func ParseQueryEnum[T ~string](r *http.Request, key string, isValid func(T) bool) (T, error) {
	raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return "", nil
	}
	value := T(raw)
	if !isValid(value) {
		return "", queryError(key, "unknown value", map[string]any{"value": raw})
	}
	return value, nil
}

func queryError(key, problem string, extra map[string]any) error {
	details := map[string]any{"field": key, "problem": problem}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter "+key).WithDetails(details)
}
