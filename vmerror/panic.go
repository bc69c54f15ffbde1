package vmerror

import "fmt"

// Panic is the unrecoverable error category of §4.9 and §7: an assertion
// failure or explicit panic from script or native code. Unlike Error it
// never unwinds to a `Try` protocol site — it is only ever observed at the
// driver boundary, and it deliberately does not implement Unwrap into
// *Error so a bare errors.As(err, &vmError) cannot mistake a panic for a
// recoverable failure.
type Panic struct {
	Reason string

	// ips mirrors Error's accumulated instruction-pointer trail.
	ips []int
}

// NewPanic constructs a panic carrying a display-able reason.
func NewPanic(reason string) *Panic {
	return &Panic{Reason: reason}
}

// Panicf constructs a panic with a formatted reason.
func Panicf(format string, args ...any) *Panic {
	return &Panic{Reason: fmt.Sprintf(format, args...)}
}

func (p *Panic) Error() string {
	msg := "panic: " + p.Reason
	for _, ip := range p.ips {
		msg += fmt.Sprintf(" [ip=%d]", ip)
	}
	return msg
}

// WithIP records the instruction pointer of an unwinding frame.
func (p *Panic) WithIP(ip int) *Panic {
	p.ips = append(p.ips, ip)
	return p
}
