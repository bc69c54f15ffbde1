package vm

import "github.com/wudi/ember/rhash"

// frame is one call-frame entry, the Go analogue of the teacher's CallFrame
// (_examples/wudi-hey/vm/call_stack.go) trimmed to what a plain operand
// stack needs: no separate locals/temporaries array, since locals live on
// the shared stack addressed relative to base.
type frame struct {
	fnHash   rhash.Hash
	base     int // stack height when this frame's arguments begin
	returnIP int // instruction index to resume the caller at
}

// frameStack is a LIFO of frames for one Vm (§4.6). Unlike the teacher's
// CallStackManager, this is never shared across goroutines: §5 makes each
// Vm single-threaded, so the mutex the teacher needs for its real-goroutine
// `go()` extension is not grounded work here (see DESIGN.md's concurrency
// decision).
type frameStack struct {
	frames []frame
}

func newFrameStack() *frameStack {
	return &frameStack{frames: make([]frame, 0, 8)}
}

func (fs *frameStack) push(f frame) {
	fs.frames = append(fs.frames, f)
}

// pop removes and returns the current frame. ok is false if the stack was
// already empty.
func (fs *frameStack) pop() (frame, bool) {
	n := len(fs.frames)
	if n == 0 {
		return frame{}, false
	}
	f := fs.frames[n-1]
	fs.frames = fs.frames[:n-1]
	return f, true
}

func (fs *frameStack) current() (*frame, bool) {
	n := len(fs.frames)
	if n == 0 {
		return nil, false
	}
	return &fs.frames[n-1], true
}

func (fs *frameStack) depth() int { return len(fs.frames) }

// truncate drops every frame above depth n, used to unwind a Vm back to a
// known-good depth after an error aborts a call partway through (§8.1.3).
func (fs *frameStack) truncate(n int) { fs.frames = fs.frames[:n] }
