// Package textutil provides small text helpers shared by the subprocess
// wrappers: bounded capture of a child's stderr and trimming it down to the
// lines worth putting in an error message.
package textutil
