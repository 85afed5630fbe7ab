// Package scripting provides a sandboxed GopherLua execution environment
// for CPU opponent policies. It has no dependency on game rule packages;
// policies see only the snapshot tables handed to them.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// policy evaluation when no override is configured.
const DefaultInstructionLimit = 100_000

// policyCallStackSize bounds recursion inside a policy script.
const policyCallStackSize = 64

// unsafeGlobals are removed after OpenBase so a policy cannot reach the
// filesystem or load code at runtime.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// opcodeLimiter is a context.Context whose Done() cancels itself after a
// fixed number of calls. GopherLua's mainLoopWithContext calls Done() once
// per opcode, making this an exact instruction-count limit.
type opcodeLimiter struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
}

func newOpcodeLimiter(limit int) *opcodeLimiter {
	base, cancel := context.WithCancel(context.Background())
	l := &opcodeLimiter{Context: base, cancel: cancel}
	l.remaining.Store(int64(limit))
	return l
}

// Done decrements the remaining opcode count. When it reaches zero the
// cancel function fires, terminating the Lua VM on the next opcode boundary.
func (l *opcodeLimiter) Done() <-chan struct{} {
	if l.remaining.Add(-1) <= 0 {
		l.cancel()
	}
	return l.Context.Done()
}

// NewSandboxedState creates a GopherLua LState with:
//   - Only safe stdlib loaded: base, table, string, math
//   - Dangerous globals removed: dofile, loadfile, load, collectgarbage, require
//   - Execution limited to at most instLimit Lua opcodes (deterministic)
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil LState ready for DoString.
// The caller owns the LState and must call L.Close() when done.
func NewSandboxedState(instLimit int) *lua.LState {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: policyCallStackSize,
	})
	openSafeLibs(L)
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetContext(newOpcodeLimiter(instLimit))
	return L
}

func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}
