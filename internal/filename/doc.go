// Package filename renders and parses the canonical output filename used to
// file redacted recordings.
//
// The rendered name is the only identity the export layout sees, so Build and
// Parse must round-trip exactly: every folder token the layout needs (subject,
// session, medication) is recovered by splitting the name on underscores.
package filename
