package sku

import (
	"regexp"
	"strings"
)

// Patterns that identify a SKU auto-generated by Shopify instead of
// assigned by the workshop. The repair and consolidation engines must
// judge artificiality through this package only, never with their own
// local copies of these rules.
var (
	shopifyPrefix = regexp.MustCompile(`(?i)^SHOPIFY-`)
	idPrefix      = regexp.MustCompile(`(?i)^ID-`)
	timestampID   = regexp.MustCompile(`^\d{13,20}$`)
	variantSuffix = regexp.MustCompile(`^\d{10,}-V\d+$`)
	genericShape  = regexp.MustCompile(`^[A-Za-z0-9]{10,}-\d+$`)

	numericLike = regexp.MustCompile(`^\d+$`)
)

// IsArtificial reports whether a SKU string is a platform-generated
// placeholder rather than a business-assigned identifier.
func IsArtificial(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	if shopifyPrefix.MatchString(s) || idPrefix.MatchString(s) {
		return true
	}
	if timestampID.MatchString(s) {
		return true
	}
	if variantSuffix.MatchString(s) {
		return true
	}
	return genericShape.MatchString(s)
}

// IsNumericLike reports whether a SKU is purely numeric. Consolidation
// prefers a short numeric SKU (a real article number) over placeholder
// strings when picking the surviving variant of a duplicate group.
func IsNumericLike(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return numericLike.MatchString(s)
}
