package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
)

func queryError(key, msg string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// optional parses a query parameter into *T, nil when absent or blank.
func optional[T any](r *http.Request, key, kind string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, queryError(key, "query parameter must be "+kind, nil)
	}
	return &v, nil
}

// ParseQueryInt returns def when key is absent and rejects values outside [lo, hi].
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	v, err := optional(r, key, "an integer", strconv.Atoi)
	switch {
	case err != nil:
		return 0, err
	case v == nil:
		return def, nil
	case *v < lo || *v > hi:
		return 0, queryError(key, "query parameter out of range", map[string]any{"min": lo, "max": hi})
	}
	return *v, nil
}

func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	return optional(r, key, "a boolean", strconv.ParseBool)
}

func ParseQueryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	return optional(r, key, "a number", decimal.NewFromString)
}

func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	return optional(r, key, "a uuid", uuid.Parse)
}

// URLParamUUID parses a chi path parameter.
func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	v, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).WithDetails(map[string]any{"field": key})
	}
	return v, nil
}
