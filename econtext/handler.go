package econtext

import "github.com/wudi/ember/value"

// NativeFn is the callable shape of a registered free function, instance
// function, or protocol implementation: it receives the already-popped
// argument window (self first, for instance functions and protocols) and
// returns exactly one value or an error, standing in for the spec's
// "(stack, base, count, output)" handler signature (§3.4) in a form that
// does not require exposing the VM's raw operand stack to host code.
type NativeFn func(args []value.Value) (value.Value, error)

// FieldAccessor is a registered field's get/set pair (§4.5). Set is nil for
// a read-only field.
type FieldAccessor struct {
	Get NativeFn
	Set NativeFn // may be nil
}
