// Package detect locates faces in decoded frames.
//
// Locator is the oracle the redaction pipeline calls once per frame.
// ProcessLocator drives an external detector helper that loads its model once
// and then answers one request per frame over stdin/stdout:
//
//	-> {"width":W,"height":H,"threshold":T,"size":N}\n followed by N raw RGB24 bytes
//	<- {"boxes":[{"x1":..,"y1":..,"x2":..,"y2":..,"confidence":..}]}\n
//	<- {"error":"..."}\n
//
// An error reply fails only that frame. A helper that exits or breaks the
// protocol is relaunched on the next call, a bounded number of times.
//
// StaticLocator returns a fixed set of boxes and is used by tests.
package detect
