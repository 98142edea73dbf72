package enums

import "fmt"

// YesNo is the literal answer format the survey stores. Kept as the two
// strings the UI submits rather than a bool so partially-filled rows can
// distinguish "unanswered" from "No".
type YesNo string

const (
	YesNoYes YesNo = "Yes"
	YesNoNo  YesNo = "No"
)

// String implements fmt.Stringer.
func (y YesNo) String() string {
	return string(y)
}

// IsValid reports whether the value is known.
func (y YesNo) IsValid() bool {
	return y == YesNoYes || y == YesNoNo
}

// ParseYesNo converts raw input into a YesNo.
func ParseYesNo(value string) (YesNo, error) {
	switch YesNo(value) {
	case YesNoYes:
		return YesNoYes, nil
	case YesNoNo:
		return YesNoNo, nil
	}
	return "", fmt.Errorf("invalid yes/no value %q", value)
}
