package durable

import (
	"errors"
	"time"
)

// Interruption is the family of non-error control-flow results a durable
// function's primitive calls can return to unwind execution back to the
// engine, which persists the suspension point and re-invokes the function
// from the top on the next tick (replay). A workflow function must return
// immediately when a primitive call returns a non-nil error that
// DidInterrupt reports true for — it is not a failure.
type Interruption interface {
	error
	isInterruption()
}

// SleepInterruption suspends the job until Until.
type SleepInterruption struct {
	SessionID string
	Until     time.Time
}

func (i *SleepInterruption) Error() string { return "durable: sleeping until " + i.Until.String() }
func (*SleepInterruption) isInterruption()  {}

// WaitInterruption suspends the job until a hook signal named SignalID
// arrives, or until Deadline if non-zero.
type WaitInterruption struct {
	SessionID string
	SignalID  string
	Deadline  time.Time
}

func (i *WaitInterruption) Error() string { return "durable: waiting for signal " + i.SignalID }
func (*WaitInterruption) isInterruption()  {}

// ProxyInterruption suspends the job until a worker activity dispatched
// on Topic completes and its result is written back.
type ProxyInterruption struct {
	SessionID string
	Topic     string
	Payload   map[string]any
}

func (i *ProxyInterruption) Error() string { return "durable: proxying to " + i.Topic }
func (*ProxyInterruption) isInterruption()  {}

// ChildInterruption suspends the job until a child job (app/entry
// activity) completes.
type ChildInterruption struct {
	SessionID     string
	App           string
	EntryActivity string
	Payload       map[string]any
}

func (i *ChildInterruption) Error() string { return "durable: awaiting child job in " + i.App }
func (*ChildInterruption) isInterruption()  {}

// DidInterrupt reports whether err is one of the durable Interruption
// types, i.e. normal suspension rather than an activity failure.
func DidInterrupt(err error) bool {
	var i Interruption
	return errors.As(err, &i)
}
