package filename

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformed reports a name that was not produced by Build.
var ErrMalformed = errors.New("malformed filename")

// Build renders the canonical redacted filename for the given fields.
func Build(f Fields) string {
	var b strings.Builder
	if f.Site != UnprefixedSite {
		b.WriteString(f.Site)
		b.WriteString(tokenDelimiter)
	}
	b.WriteString(f.SubjectToken())
	for _, token := range []string{f.FreezerStatus, f.SessionID, f.MedicationStatus, f.TrialID} {
		b.WriteString(tokenDelimiter)
		b.WriteString(token)
	}
	if f.Retry > 0 {
		b.WriteString(retrySeparator)
		b.WriteString(strconv.Itoa(f.Retry))
	}
	b.WriteString(tokenDelimiter)
	b.WriteString(f.Plane)
	b.WriteString(tokenDelimiter)
	b.WriteString(RedactedToken)
	b.WriteString(DefaultExtension)
	return b.String()
}

// Parse recovers the fields from a name produced by Build. The redaction token
// may be either the redacted or unredacted form and any extension is accepted.
func Parse(name string) (Fields, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	tokens := strings.Split(stem, tokenDelimiter)

	var f Fields
	switch len(tokens) {
	case 7:
		f.Site = UnprefixedSite
	case 8:
		f.Site = tokens[0]
		tokens = tokens[1:]
	default:
		return Fields{}, fmt.Errorf("%w: %q has %d tokens", ErrMalformed, base, len(tokens))
	}

	if last := tokens[6]; last != RedactedToken && last != UnredactedToken {
		return Fields{}, fmt.Errorf("%w: %q missing %s token", ErrMalformed, base, RedactedToken)
	}

	subject := tokens[0]
	if !strings.HasPrefix(subject, subjectPrefix) || len(subject) != len(subjectPrefix)+subjectTokenWidth {
		return Fields{}, fmt.Errorf("%w: %q has no subject token", ErrMalformed, base)
	}
	id, err := strconv.Atoi(subject[len(subjectPrefix):])
	if err != nil {
		return Fields{}, fmt.Errorf("%w: subject token %q: %v", ErrMalformed, subject, err)
	}
	f.SubjectID = id
	f.FreezerStatus = tokens[1]
	f.SessionID = tokens[2]
	f.MedicationStatus = tokens[3]

	trial := tokens[4]
	if idx := strings.Index(trial, retrySeparator); idx >= 0 {
		retry, err := strconv.Atoi(trial[idx+len(retrySeparator):])
		if err != nil || retry <= 0 {
			return Fields{}, fmt.Errorf("%w: retry token in %q", ErrMalformed, trial)
		}
		f.Retry = retry
		trial = trial[:idx]
	}
	f.TrialID = trial
	f.Plane = tokens[5]
	return f, nil
}

// Unredacted swaps the trailing redaction token for its unredacted form.
func Unredacted(name string) (string, error) {
	return swapToken(name, RedactedToken, UnredactedToken)
}

// Redacted reverses Unredacted.
func Redacted(name string) (string, error) {
	return swapToken(name, UnredactedToken, RedactedToken)
}

func swapToken(name, from, to string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	suffix := tokenDelimiter + from
	if !strings.HasSuffix(stem, suffix) {
		return "", fmt.Errorf("%w: %q does not end with %s", ErrMalformed, name, suffix)
	}
	return strings.TrimSuffix(stem, suffix) + tokenDelimiter + to + ext, nil
}

// WithExtension replaces the extension of name with ext (leading dot optional).
func WithExtension(name, ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
