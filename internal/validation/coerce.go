package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

var errMissing = errors.New("value is missing")

// dateLayouts are tried in order. "01/02/2006" is US month/day; day-first
// input is not supported.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseInt accepts plain integers, leading zeros and integral decimal forms
// such as "46601.0". A bare fraction like ".0" has no integer part and fails.
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errMissing
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || strings.Trim(frac, "0") != "" {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	v, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return v, nil
}

// ParseDate returns the calendar date of s at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errMissing
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognised date", s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeGender folds free-form gender text onto M, F or Other.
func NormalizeGender(s string) models.Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return models.GenderMale
	case "f", "female":
		return models.GenderFemale
	default:
		return models.GenderOther
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NormalizeStatus capitalises an appointment status.
func NormalizeStatus(s string) models.AppointmentStatus {
	c := capitalize(s)
	if c == "Canceled" {
		c = string(models.StatusCancelled)
	}
	return models.AppointmentStatus(c)
}

// NormalizePaymentStatus capitalises a billing payment status.
func NormalizePaymentStatus(s string) models.PaymentStatus {
	return models.PaymentStatus(capitalize(s))
}

var paymentMethodAliases = map[string]models.PaymentMethod{
	"cash":        models.MethodCash,
	"card":        models.MethodCard,
	"credit card": models.MethodCard,
	"debit card":  models.MethodCard,
	"insurance":   models.MethodInsurance,
	"upi":         models.MethodUPI,
	"online":      models.MethodOnline,
}

// NormalizePaymentMethod maps known aliases and leaves anything else trimmed
// for the closed-set check to reject.
func NormalizePaymentMethod(s string) models.PaymentMethod {
	s = strings.TrimSpace(s)
	if m, ok := paymentMethodAliases[strings.ToLower(s)]; ok {
		return m
	}
	return models.PaymentMethod(s)
}

// reader coerces the fields of one row. After the first failure every
// further call is a no-op, so the first failing field is the one reported.
type reader struct {
	row    models.RawRow
	reason *Reason
}

func (r *reader) fail(col, msg string) {
	if r.reason == nil {
		r.reason = &Reason{Stage: CheckCoercion, Field: col, Message: msg}
	}
}

// text returns the trimmed cell, nil for a null or blank cell.
func (r *reader) text(col string) *string {
	v := r.row.Field(col)
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func (r *reader) str(col string) string {
	if v := r.text(col); v != nil {
		return *v
	}
	return ""
}

func (r *reader) int(col string) int64 {
	if r.reason != nil {
		return 0
	}
	v := r.text(col)
	if v == nil {
		r.fail(col, "missing value cannot be coerced to integer")
		return 0
	}
	n, err := ParseInt(*v)
	if err != nil {
		r.fail(col, err.Error())
	}
	return n
}

func (r *reader) optInt(col string) *int64 {
	if r.reason != nil || r.text(col) == nil {
		return nil
	}
	n := r.int(col)
	if r.reason != nil {
		return nil
	}
	return &n
}

func (r *reader) cents(col string) models.Cents {
	if r.reason != nil {
		return 0
	}
	v := r.text(col)
	if v == nil {
		r.fail(col, "missing value cannot be coerced to decimal")
		return 0
	}
	c, err := models.ParseCents(*v)
	if err != nil {
		r.fail(col, fmt.Sprintf("%q: %v", *v, err))
	}
	return c
}

func (r *reader) date(col string) time.Time {
	if r.reason != nil {
		return time.Time{}
	}
	v := r.text(col)
	if v == nil {
		r.fail(col, "missing value cannot be coerced to date")
		return time.Time{}
	}
	t, err := ParseDate(*v)
	if err != nil {
		r.fail(col, err.Error())
	}
	return t
}

// enum requires a value to be present; membership is checked later.
func (r *reader) enum(col string) string {
	if r.reason != nil {
		return ""
	}
	v := r.text(col)
	if v == nil {
		r.fail(col, "missing value cannot be coerced to enumerated value")
		return ""
	}
	return *v
}
