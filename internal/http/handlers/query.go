package handlers

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"donation-server/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// parseDonationQuery converts raw query params into a typed filter. Empty
// strings are dropped, never coerced: `includeDeleted=""` means "absent", not
// false. Numeric strings are coerced ("1000.50" becomes 1000.5).
func parseDonationQuery(values url.Values) (domain.DonationFilter, error) {
	var filter domain.DonationFilter

	from, err := parseDateParam(values.Get("from"))
	if err != nil {
		return filter, err
	}
	to, err := parseDateParam(values.Get("to"))
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to

	filter.CategoryID = strings.TrimSpace(values.Get("categoryId"))
	filter.OperatorID = strings.TrimSpace(values.Get("operatorId"))
	if m := strings.TrimSpace(values.Get("paymentMethod")); m != "" {
		method := domain.PaymentMethod(strings.ToUpper(m))
		if !domain.ValidPaymentMethod(method) {
			return filter, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, m)
		}
		filter.PaymentMethod = method
	}

	minAmount, err := parseAmountParam(values.Get("minAmount"))
	if err != nil {
		return filter, err
	}
	maxAmount, err := parseAmountParam(values.Get("maxAmount"))
	if err != nil {
		return filter, err
	}
	filter.MinAmountCents = minAmount
	filter.MaxAmountCents = maxAmount

	filter.DonorSearch = strings.TrimSpace(values.Get("q"))

	includeDeleted, err := parseBoolParam(values.Get("includeDeleted"))
	if err != nil {
		return filter, err
	}
	if includeDeleted != nil {
		filter.IncludeDeleted = *includeDeleted
	}

	filter.Limit, filter.Offset, err = parsePageParams(values)
	if err != nil {
		return filter, err
	}

	return normalizeFilter(filter), nil
}

// normalizeFilter clamps pagination so the result is stable: normalizing an
// already-normalized filter yields the same values.
func normalizeFilter(f domain.DonationFilter) domain.DonationFilter {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func parseAuditQuery(values url.Values) (domain.AuditFilter, error) {
	var filter domain.AuditFilter

	from, err := parseDateParam(values.Get("from"))
	if err != nil {
		return filter, err
	}
	to, err := parseDateParam(values.Get("to"))
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to
	filter.ActorID = strings.TrimSpace(values.Get("actorId"))
	filter.EntityType = strings.TrimSpace(values.Get("entityType"))
	filter.Action = strings.TrimSpace(values.Get("action"))

	filter.Limit, filter.Offset, err = parsePageParams(values)
	if err != nil {
		return filter, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	return filter, nil
}

func parsePageParams(values url.Values) (limit, offset int, err error) {
	limit = defaultPageSize
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: invalid limit %q", domain.ErrValidation, raw)
		}
	}
	page := 1
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("%w: invalid page %q", domain.ErrValidation, raw)
		}
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, (page - 1) * limit, nil
}

// parseBoolParam returns nil for an empty value so callers can tell "absent"
// from "false".
func parseBoolParam(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid boolean %q", domain.ErrValidation, raw)
	}
	return &v, nil
}

// parseAmountParam coerces a decimal string into minor units.
func parseAmountParam(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", domain.ErrValidation, raw)
	}
	cents := int64(math.Round(v * 100))
	return &cents, nil
}

func parseDateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", domain.ErrValidation, raw)
	}
	return &t, nil
}

// coerceAmount accepts a JSON number or a numeric string and returns minor
// units. The donation form submits amounts as strings.
func coerceAmount(v any) (int64, error) {
	switch amount := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: amount is required", domain.ErrValidation)
	case float64:
		return int64(math.Round(amount * 100)), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid amount %q", domain.ErrValidation, amount)
		}
		return int64(math.Round(parsed * 100)), nil
	default:
		return 0, fmt.Errorf("%w: invalid amount", domain.ErrValidation)
	}
}
