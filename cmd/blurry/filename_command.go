package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"blurry/internal/filename"
)

// fieldFlags binds the filename fields to command flags.
type fieldFlags struct {
	site       string
	subject    int
	freezer    string
	session    string
	medication string
	trial      string
	retry      int
	plane      string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.site, "site", filename.UnprefixedSite, "Recording site ("+strings.Join(filename.Sites, ", ")+")")
	flags.IntVar(&f.subject, "subject", 0, fmt.Sprintf("Subject number (0-%d)", filename.MaxSubjectID))
	flags.StringVar(&f.freezer, "freezer", "", "Freezer status ("+strings.Join(filename.FreezerStatuses, ", ")+")")
	flags.StringVar(&f.session, "session", "", "Session ("+strings.Join(filename.Sessions, ", ")+")")
	flags.StringVar(&f.medication, "medication", "", "Medication state ("+strings.Join(filename.MedicationStates, ", ")+")")
	flags.StringVar(&f.trial, "trial", "", "Trial ("+strings.Join(filename.Trials, ", ")+")")
	flags.IntVar(&f.retry, "retry", 0, fmt.Sprintf("Retry number (0 for none, max %d)", filename.MaxRetry))
	flags.StringVar(&f.plane, "plane", "", "Camera plane ("+strings.Join(filename.Planes, ", ")+")")
}

func (f *fieldFlags) fields() filename.Fields {
	return filename.Fields{
		Site:             strings.TrimSpace(f.site),
		SubjectID:        f.subject,
		FreezerStatus:    strings.TrimSpace(f.freezer),
		SessionID:        strings.TrimSpace(f.session),
		MedicationStatus: strings.TrimSpace(f.medication),
		TrialID:          strings.TrimSpace(f.trial),
		Retry:            f.retry,
		Plane:            strings.TrimSpace(f.plane),
	}
}

// build validates the flags and renders the redacted filename.
func (f *fieldFlags) build() (string, error) {
	fields := f.fields()
	if err := fields.Validate(); err != nil {
		return "", fmt.Errorf("invalid filename fields: %w", err)
	}
	return filename.Build(fields), nil
}

func newFilenameCommand() *cobra.Command {
	var flags fieldFlags
	var unredacted bool

	cmd := &cobra.Command{
		Use:         "filename",
		Short:       "Print the export filename for a recording",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := flags.build()
			if err != nil {
				return err
			}
			if unredacted {
				if name, err = filename.Unredacted(name); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&unredacted, "unredacted", false, "Print the untouched copy's name instead")
	return cmd
}
