package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

const maxBodyBytes = 64 << 10

var errEmptyKind = errors.New("missing transaction kind")

// decodeJSON reads a single JSON object into dst. Unknown fields, trailing
// data and oversized bodies are malformed requests.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return malformed(errors.New("request body is empty"))
		}
		return malformed(fmt.Errorf("invalid request body: %w", err))
	}
	if dec.More() {
		return malformed(errors.New("invalid request body: trailing data"))
	}
	return nil
}

// ViewParams holds the frame and reference date of a view request.
type ViewParams struct {
	Frame core.TimeFrame
	// Ref is zero when the caller gave no date.
	Ref time.Time
}

// ParseViewParams reads frame and date from the query string. An empty
// frame means all; an empty date means now.
func ParseViewParams(query url.Values, loc *time.Location) (ViewParams, error) {
	frame, err := core.ParseTimeFrame(query.Get("frame"))
	if err != nil {
		return ViewParams{}, malformed(fmt.Errorf("%w: %q", err, query.Get("frame")))
	}
	p := ViewParams{Frame: frame}
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		ref, err := analytics.ParseReferenceDate(raw, loc)
		if err != nil {
			return ViewParams{}, malformed(err)
		}
		p.Ref = ref
	}
	return p, nil
}

func (p ViewParams) request() services.ViewRequest {
	return services.ViewRequest{Frame: p.Frame, Ref: p.Ref}
}

// parseDateParam reads a required YYYY-MM-DD query parameter.
func parseDateParam(query url.Values, name string) (core.Date, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return core.Date{}, malformed(fmt.Errorf("missing %s date", name))
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, malformed(fmt.Errorf("%w: %s=%q", err, name, raw))
	}
	return d, nil
}

// parseKindParam reads an optional kind; an empty value means both kinds.
func parseKindParam(raw string) (core.Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	kind, err := core.ParseKind(raw)
	if err != nil {
		return "", malformed(fmt.Errorf("%w: %q", err, raw))
	}
	return kind, nil
}

func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, malformed(fmt.Errorf("invalid index %q", raw))
	}
	return i, nil
}

// transactionInput is the request body for creating or replacing a
// transaction. Date accepts a date or date-time; an empty date means now.
type transactionInput struct {
	Kind        string          `json:"kind"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

func (in transactionInput) toTransaction(loc *time.Location, now time.Time) (core.Transaction, error) {
	kind, err := core.ParseKind(in.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	t := core.Transaction{
		Kind:        kind,
		Category:    in.Category,
		Amount:      core.RoundAmount(in.Amount),
		Date:        now,
		Description: in.Description,
	}
	if raw := strings.TrimSpace(in.Date); raw != "" {
		t.Date, err = analytics.ParseReferenceDate(raw, loc)
		if err != nil {
			return core.Transaction{}, malformed(err)
		}
	}
	return t, nil
}

type noteInput struct {
	Note string `json:"note"`
}

type limitsInput struct {
	Daily   decimal.Decimal `json:"daily"`
	Monthly decimal.Decimal `json:"monthly"`
}

type tokenInput struct {
	UserID string `json:"user_id"`
}
