package durable

// Func is a user-authored durable function: replayed from the top on
// every engine tick, returning an Interruption (via DidInterrupt) to
// suspend, a FatalError/RetryableError to fail, or a result map to finish.
type Func func(c *Context) (map[string]any, error)

// Interceptor wraps a Func, e.g. to add panic recovery or structured
// logging around every invocation, the same recover()-guarded-closure
// shape other job-handler Run calls in this codebase use.
type Interceptor func(next Func) Func

// Chain composes interceptors outermost-first: Chain(a, b)(f) behaves as
// a(b(f)).
func Chain(interceptors ...Interceptor) Interceptor {
	return func(next Func) Func {
		for i := len(interceptors) - 1; i >= 0; i-- {
			next = interceptors[i](next)
		}
		return next
	}
}

// RecoverInterceptor converts a panic inside a durable function into a
// FatalError instead of crashing the engine's goroutine, the same
// panic-to-Fail discipline the job worker and activity wrapper use
// elsewhere in this codebase.
func RecoverInterceptor() Interceptor {
	return func(next Func) Func {
		return func(c *Context) (result map[string]any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = Fatal(panicErr{r})
				}
			}()
			return next(c)
		}
	}
}

type panicErr struct{ v any }

func (p panicErr) Error() string { return "panic during durable function execution" }
