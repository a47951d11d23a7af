// Package redact permanently obscures face regions in RGB24 frames.
//
// Each detection box is grown by a margin, clamped to the frame, box blurred
// with a kernel half the region's size, and composited back through an
// elliptical mask inscribed in the grown box. Frames are modified in place
// and the original pixels cannot be recovered.
package redact
