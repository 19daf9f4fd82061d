package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
)

// Input validation and sanitization utilities

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID checks a store/product identifier coming from the request path
// or body: non-empty, sane characters, bounded length.
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id cannot be empty", kind)
	}
	if len(id) > 64 {
		return fmt.Errorf("%s id too long (max 64 characters)", kind)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid %s id format", kind)
	}
	return nil
}

// ValidateOperator checks the operator name from the URL.
func ValidateOperator(operator string) error {
	return ValidateID("operator", operator)
}

// ValidateStatusFilter checks a dashboard filter value: "All" or one of the
// known recommendation labels.
func ValidateStatusFilter(filter string) error {
	if filter == "" || filter == dashboard.FilterAll {
		return nil
	}
	_, err := dashboard.ParseStatus(filter)
	return err
}

// ValidateTariffOverride bounds a what-if tariff rate to the 0-1 fraction
// the tariff table uses.
func ValidateTariffOverride(v *float64) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 1 {
		return fmt.Errorf("customTariff must be a fraction between 0 and 1, got %v", *v)
	}
	return nil
}

// ValidateDemandOverride bounds a what-if demand signal to the -1..1 range
// of the sentiment score.
func ValidateDemandOverride(v *float64) error {
	if v == nil {
		return nil
	}
	if *v < -1 || *v > 1 {
		return fmt.Errorf("customDemand must be between -1 and 1, got %v", *v)
	}
	return nil
}
