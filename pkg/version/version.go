// Package version tracks the uplink protocol version and its mapping
// onto ALPN protocol names.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this module.
// Majors are wire incompatible; minors add optional behavior within a
// major, so compatibility is decided on the major alone.
var Current = SpecVersion{Major: 1, Minor: 0}

// alpnPrefix precedes the major version in ALPN protocol names.
const alpnPrefix = "uplink/"

// SpecVersion is a parsed "major.minor" protocol version.
type SpecVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (SpecVersion, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minorStr, ".") {
		return SpecVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(majorStr, 10, 16)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	minor, err := strconv.ParseUint(minorStr, 10, 16)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return SpecVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v SpecVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether two versions can interoperate on the wire,
// which holds exactly when their majors match.
func (v SpecVersion) Compatible(other SpecVersion) bool {
	return v.Major == other.Major
}

// ALPN returns the ALPN protocol name for this version's major: "uplink/N".
func (v SpecVersion) ALPN() string {
	return alpnPrefix + strconv.FormatUint(uint64(v.Major), 10)
}

// MajorFromALPN extracts the major version from an ALPN protocol name.
func MajorFromALPN(alpn string) (uint16, error) {
	suffix, ok := strings.CutPrefix(alpn, alpnPrefix)
	if !ok {
		return 0, fmt.Errorf("not an uplink ALPN protocol: %q", alpn)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in ALPN %q", alpn)
	}
	return uint16(major), nil
}

// SupportedALPNProtocols lists the ALPN names this module can speak,
// preferred first. Currently the single supported major.
func SupportedALPNProtocols() []string {
	return []string{Current.ALPN()}
}
