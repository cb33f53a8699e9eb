package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// Version is the internal representation of a PDF header/body version.
type Version int

// All PDF versions up to 2.0.
const (
	V10 Version = iota
	V11
	V12
	V13
	V14
	V15
	V16
	V17
	V20
)

// ParseVersion parses a "%PDF-x.y" version string (without the "%PDF-"
// prefix) into a Version.
func ParseVersion(versionStr string) (Version, error) {
	switch versionStr {
	case "1.0":
		return V10, nil
	case "1.1":
		return V11, nil
	case "1.2":
		return V12, nil
	case "1.3":
		return V13, nil
	case "1.4":
		return V14, nil
	case "1.5":
		return V15, nil
	case "1.6":
		return V16, nil
	case "1.7":
		return V17, nil
	case "2.0":
		return V20, nil
	}
	return -1, errors.Errorf("unrecognized PDF version %q", versionStr)
}

// VersionString renders v back to its "x.y" form.
func VersionString(v Version) string {
	if v == V20 {
		return "2.0"
	}
	return fmt.Sprintf("1.%d", int(v))
}
