// Package layout maps queue target filenames to export paths.
//
// Two policies exist. Structured files each video under
// <root>/<source|derived>/subNNN/sesNN/<on|off>/ and requires the source and
// derived folders to exist before a batch starts. Flat drops every file into
// two sibling folders that are created on demand. Validate never touches the
// filesystem beyond stat and access checks.
package layout
