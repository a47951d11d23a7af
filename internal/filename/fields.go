package filename

import (
	"fmt"
	"slices"
)

// Enumerations accepted for each field.
var (
	Sites            = []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "Rochester"}
	FreezerStatuses  = []string{"FR", "NF", "CO"}
	Sessions         = []string{"ses01", "ses02"}
	MedicationStates = []string{"on", "off"}
	Trials           = []string{"stwalk", "dtwalk", "stcarr", "stturn", "dtturn", "stshuf", "stagil", "stdoor"}
	Planes           = []string{"front", "sagit"}
)

const (
	// UnprefixedSite is rendered without a site token.
	UnprefixedSite   = "Rochester"
	MaxSubjectID     = 999
	MaxRetry         = 999
	DefaultExtension = ".mp4"
	RedactedToken    = "blur"
	UnredactedToken  = "unblur"

	subjectPrefix     = "sub"
	retrySeparator    = "-retr"
	tokenDelimiter    = "_"
	subjectTokenWidth = 3
)

// Fields carries the structured metadata a filename is built from.
type Fields struct {
	Site             string
	SubjectID        int
	FreezerStatus    string
	SessionID        string
	MedicationStatus string
	TrialID          string
	Retry            int
	Plane            string
}

// SubjectToken returns the subject folder token, e.g. "sub007".
func (f Fields) SubjectToken() string {
	return fmt.Sprintf("%s%0*d", subjectPrefix, subjectTokenWidth, f.SubjectID)
}

// SessionToken returns the session folder token.
func (f Fields) SessionToken() string {
	return f.SessionID
}

// MedicationToken returns the medication folder token.
func (f Fields) MedicationToken() string {
	return f.MedicationStatus
}

// Validate checks numeric ranges and enumerations. Build itself never fails;
// callers validate operator input before enqueueing.
func (f Fields) Validate() error {
	if f.SubjectID < 0 || f.SubjectID > MaxSubjectID {
		return fmt.Errorf("subject id %d out of range 0-%d", f.SubjectID, MaxSubjectID)
	}
	if f.Retry < 0 || f.Retry > MaxRetry {
		return fmt.Errorf("retry %d out of range 0-%d", f.Retry, MaxRetry)
	}
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"site", f.Site, Sites},
		{"freezer status", f.FreezerStatus, FreezerStatuses},
		{"session", f.SessionID, Sessions},
		{"medication status", f.MedicationStatus, MedicationStates},
		{"trial", f.TrialID, Trials},
		{"plane", f.Plane, Planes},
	}
	for _, check := range checks {
		if !slices.Contains(check.allowed, check.value) {
			return fmt.Errorf("%s %q not one of %v", check.name, check.value, check.allowed)
		}
	}
	return nil
}
