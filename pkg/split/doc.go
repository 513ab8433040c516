// Package split holds the split (feature flag) data model and the parser
// that turns control-plane definitions into cacheable values.
//
// RawSplit mirrors the wire format of a split change. Parser converts it into
// a Split, a plain value object that can be serialized into the shared store
// without carrying any live handles. SegmentRegisteringParser additionally
// registers every segment referenced by an IN_SEGMENT matcher, which is how
// the segment synchronizer learns what to track.
//
// A parse error wrapping ErrInvalidSplit means the definition must not be
// served; callers remove it from the cache and continue.
package split
