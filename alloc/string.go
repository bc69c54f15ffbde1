package alloc

import "strings"

// RString is a growable UTF-8 string builder whose appends are fallible,
// following the same allocation discipline as Vec.
type RString struct {
	b   strings.Builder
	Inj Injector
}

// NewString returns an empty fallible string builder.
func NewString() *RString { return &RString{} }

// Len reports the number of bytes written so far. Infallible.
func (s *RString) Len() int { return s.b.Len() }

// String returns the accumulated contents. Infallible, non-allocating view.
func (s *RString) String() string { return s.b.String() }

// TryPushStr appends str, growing the backing buffer if required.
func (s *RString) TryPushStr(str string) error {
	if s.Inj.trip() {
		return newError(AllocFailed, "try_push_str")
	}
	if s.b.Len()+len(str) > maxLen {
		return newError(CapacityOverflow, "try_push_str")
	}
	// strings.Builder.WriteString never fails in practice; the only
	// failure modes worth modeling here are the injected and overflow
	// cases checked above, consistent with the non-allocating-reads /
	// fallible-growth split mandated by §4.1.
	s.b.WriteString(str)
	return nil
}

// TryPush appends a single rune.
func (s *RString) TryPush(r rune) error {
	return s.TryPushStr(string(r))
}

// TryClone produces an independent copy.
func (s *RString) TryClone() (*RString, error) {
	clone := NewString()
	if err := clone.TryPushStr(s.String()); err != nil {
		return nil, err
	}
	return clone, nil
}
