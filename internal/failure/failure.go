// Package failure defines the typed failure signals shared by the report pipeline.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide placeholder text and alert content
// without string matching.
type Kind int

const (
	KindNone Kind = iota
	KindDependencyUnavailable
	KindValidation
	KindGeneration
	KindPriceMismatch
	KindAlertDelivery
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindDependencyUnavailable:
		return "dependency_unavailable"
	case KindValidation:
		return "validation_failed"
	case KindGeneration:
		return "generation_failed"
	case KindPriceMismatch:
		return "price_mismatch"
	case KindAlertDelivery:
		return "alert_delivery_failed"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrDependencyUnavailable is the only failure allowed to escape a pipeline run.
var ErrDependencyUnavailable = errors.New("critical data source unavailable")

// ErrInvalidPrice reports a non-positive price handed to the cross-check.
var ErrInvalidPrice = errors.New("invalid price data")

// DependencyError names the required dependency that failed the health gate.
type DependencyError struct {
	Name string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: required data source %q unavailable, analysis aborted", ErrDependencyUnavailable, e.Name)
}

func (e *DependencyError) Unwrap() error { return ErrDependencyUnavailable }

// Reason is the fixed cause of a rejected section text.
type Reason string

const (
	ReasonTooShort       Reason = "too short or empty"
	ReasonToolNarration  Reason = "contains tool-invocation narration"
	ReasonMissingKeyword Reason = "missing required keyword"
)

// ValidationError rejects a section's text as a whole.
type ValidationError struct {
	Section string
	Reason  Reason
	// Detail is the offending marker or the missing keyword, when there is one.
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%q)", e.Section, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Section, e.Reason)
}

// GenerationError wraps a producer failure for one section or synthesis step.
type GenerationError struct {
	Section string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed: %v", e.Section, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PriceMismatchError reports an analyzed price too far from the reference price.
type PriceMismatchError struct {
	Entity    string
	Analyzed  float64
	Reference float64
	Tolerance float64
	Deviation float64
}

func (e *PriceMismatchError) Error() string {
	msg := fmt.Sprintf("price data mismatch (deviation %.1f%%)\n  - reference price: %.0f\n  - analyzed price: %.0f\n  - tolerance: %.0f%%",
		e.Deviation*100, e.Reference, e.Analyzed, e.Tolerance*100)
	if e.Entity == "" {
		return msg
	}
	return e.Entity + ": " + msg
}

// AlertDeliveryError is produced by alert transports. Sinks log and swallow it.
type AlertDeliveryError struct {
	Err error
}

func (e *AlertDeliveryError) Error() string {
	return fmt.Sprintf("alert delivery failed: %v", e.Err)
}

func (e *AlertDeliveryError) Unwrap() error { return e.Err }

// KindOf maps an error onto the taxonomy. Unknown errors are generation failures,
// since anything else escaping a producer is a failure to produce text.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		valErr   *ValidationError
		priceErr *PriceMismatchError
		alertErr *AlertDeliveryError
	)
	switch {
	case errors.Is(err, ErrDependencyUnavailable):
		return KindDependencyUnavailable
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &priceErr), errors.Is(err, ErrInvalidPrice):
		return KindPriceMismatch
	case errors.As(err, &alertErr):
		return KindAlertDelivery
	case errors.Is(err, errCancelled):
		return KindCancelled
	default:
		return KindGeneration
	}
}

var errCancelled = errors.New("cancelled before generation")

// Cancelled returns the error recorded for a section skipped after cancellation.
func Cancelled(section string, cause error) error {
	return fmt.Errorf("%s: %w: %v", section, errCancelled, cause)
}
