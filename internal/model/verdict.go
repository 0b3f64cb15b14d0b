package model

import "fmt"

// Verdict is the final classification of a run.
//
// Design decision: UNKNOWN is a distinct value rather than a "NO" with an
// error attached. A site that blocks bots or renders only with JavaScript
// must not be reported as compliant just because we could not read it.
type Verdict int

const (
	// VerdictUnknown means the target page could not be fetched,
	// so presence of Google Fonts could not be determined.
	VerdictUnknown Verdict = iota

	// VerdictNo means the page was fetched and no references were found.
	VerdictNo

	// VerdictYes means at least one stylesheet or font file was found.
	VerdictYes
)

// String returns the machine-readable verdict used in the key=value line.
func (v Verdict) String() string {
	switch v {
	case VerdictYes:
		return "YES"
	case VerdictNo:
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler so verdicts are stored
// as "YES", "NO" or "UNKNOWN" in JSON reports and the history database.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVerdict converts "YES", "NO" or "UNKNOWN" back into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "YES":
		return VerdictYes, nil
	case "NO":
		return VerdictNo, nil
	case "UNKNOWN":
		return VerdictUnknown, nil
	default:
		return VerdictUnknown, fmt.Errorf("unknown verdict %q", s)
	}
}
