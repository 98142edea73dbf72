package enums

import "fmt"

// DownsellVariant is the A/B pricing treatment. Sticky per user across
// repeated cancellation attempts.
type DownsellVariant string

const (
	DownsellVariantA DownsellVariant = "A"
	DownsellVariantB DownsellVariant = "B"
)

// String implements fmt.Stringer.
func (v DownsellVariant) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v DownsellVariant) IsValid() bool {
	return v == DownsellVariantA || v == DownsellVariantB
}

// ParseDownsellVariant converts raw input into a DownsellVariant.
func ParseDownsellVariant(value string) (DownsellVariant, error) {
	switch DownsellVariant(value) {
	case DownsellVariantA:
		return DownsellVariantA, nil
	case DownsellVariantB:
		return DownsellVariantB, nil
	}
	return "", fmt.Errorf("invalid downsell variant %q", value)
}
