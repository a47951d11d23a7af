package filename_test

import (
	"errors"
	"strings"
	"testing"

	"blurry/internal/filename"
)

func sampleFields() filename.Fields {
	return filename.Fields{
		Site:             "C3",
		SubjectID:        7,
		FreezerStatus:    "FR",
		SessionID:        "ses01",
		MedicationStatus: "on",
		TrialID:          "stwalk",
		Plane:            "front",
	}
}

func TestBuildRendersCanonicalName(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*filename.Fields)
		want   string
	}{
		{"prefixed site", func(*filename.Fields) {}, "C3_sub007_FR_ses01_on_stwalk_front_blur.mp4"},
		{"unprefixed site", func(f *filename.Fields) { f.Site = "Rochester" }, "sub007_FR_ses01_on_stwalk_front_blur.mp4"},
		{"retry", func(f *filename.Fields) { f.Retry = 12 }, "C3_sub007_FR_ses01_on_stwalk-retr12_front_blur.mp4"},
		{"max subject", func(f *filename.Fields) { f.SubjectID = 999; f.Plane = "sagit" }, "C3_sub999_FR_ses01_on_stwalk_sagit_blur.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := sampleFields()
			tc.mutate(&f)
			if got := filename.Build(f); got != tc.want {
				t.Fatalf("Build() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildRetryTokenOnlyWhenPositive(t *testing.T) {
	for retry := 0; retry <= filename.MaxRetry; retry++ {
		f := sampleFields()
		f.Retry = retry
		name := filename.Build(f)
		count := strings.Count(name, "-retr")
		if retry == 0 && count != 0 {
			t.Fatalf("retry 0 rendered retry token: %q", name)
		}
		if retry > 0 {
			if count != 1 {
				t.Fatalf("retry %d rendered %d retry tokens: %q", retry, count, name)
			}
			parsed, err := filename.Parse(name)
			if err != nil {
				t.Fatalf("Parse(%q): %v", name, err)
			}
			if parsed.Retry != retry {
				t.Fatalf("retry round trip: got %d want %d", parsed.Retry, retry)
			}
		}
	}
}

func TestBuildInjectiveOverSubjectSessionMedication(t *testing.T) {
	seen := make(map[string]filename.Fields)
	for id := 0; id <= filename.MaxSubjectID; id++ {
		for _, session := range filename.Sessions {
			for _, med := range filename.MedicationStates {
				f := sampleFields()
				f.SubjectID = id
				f.SessionID = session
				f.MedicationStatus = med
				name := filename.Build(f)
				if prev, ok := seen[name]; ok {
					t.Fatalf("collision for %q: %#v vs %#v", name, prev, f)
				}
				seen[name] = f
			}
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, site := range filename.Sites {
		for _, plane := range filename.Planes {
			f := sampleFields()
			f.Site = site
			f.Plane = plane
			f.Retry = 3
			name := filename.Build(f)
			got, err := filename.Parse(name)
			if err != nil {
				t.Fatalf("Parse(%q): %v", name, err)
			}
			if got != f {
				t.Fatalf("round trip mismatch for %q: got %#v want %#v", name, got, f)
			}
			if got.SubjectToken() != "sub007" || got.SessionToken() != "ses01" || got.MedicationToken() != "on" {
				t.Fatalf("unexpected folder tokens: %s %s %s", got.SubjectToken(), got.SessionToken(), got.MedicationToken())
			}
		}
	}
}

func TestParseRejectsForeignNames(t *testing.T) {
	for _, name := range []string{
		"holiday.mp4",
		"C3_subject_FR_ses01_on_stwalk_front_blur.mp4",
		"C3_sub007_FR_ses01_on_stwalk_front_raw.mp4",
		"C3_sub007_FR_ses01_on_stwalk-retrx_front_blur.mp4",
	} {
		if _, err := filename.Parse(name); !errors.Is(err, filename.ErrMalformed) {
			t.Fatalf("Parse(%q) error = %v, want ErrMalformed", name, err)
		}
	}
}

func TestUnredactedSwapIsReversible(t *testing.T) {
	f := sampleFields()
	f.Retry = 2
	name := filename.Build(f)

	unblurred, err := filename.Unredacted(name)
	if err != nil {
		t.Fatalf("Unredacted: %v", err)
	}
	if unblurred != "C3_sub007_FR_ses01_on_stwalk-retr2_front_unblur.mp4" {
		t.Fatalf("unexpected unredacted name %q", unblurred)
	}
	back, err := filename.Redacted(unblurred)
	if err != nil {
		t.Fatalf("Redacted: %v", err)
	}
	if back != name {
		t.Fatalf("swap not reversible: %q -> %q -> %q", name, unblurred, back)
	}
	if _, err := filename.Unredacted(unblurred); err == nil {
		t.Fatal("expected error swapping an already unredacted name")
	}
}

func TestValidate(t *testing.T) {
	if err := sampleFields().Validate(); err != nil {
		t.Fatalf("expected valid fields, got %v", err)
	}
	bad := []func(*filename.Fields){
		func(f *filename.Fields) { f.SubjectID = 1000 },
		func(f *filename.Fields) { f.Retry = -1 },
		func(f *filename.Fields) { f.Site = "C9" },
		func(f *filename.Fields) { f.Plane = "top" },
		func(f *filename.Fields) { f.TrialID = "" },
	}
	for i, mutate := range bad {
		f := sampleFields()
		mutate(&f)
		if err := f.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %#v", i, f)
		}
	}
}

func TestWithExtension(t *testing.T) {
	if got := filename.WithExtension("a_unblur.mp4", "mov"); got != "a_unblur.mov" {
		t.Fatalf("unexpected %q", got)
	}
	if got := filename.WithExtension("a_unblur.mp4", ".MKV"); got != "a_unblur.MKV" {
		t.Fatalf("unexpected %q", got)
	}
}
