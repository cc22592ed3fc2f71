package resilience

// Hooks are optional observability callbacks invoked by the pipeline and
// the per-resource components it manages. All callbacks may be nil and must
// be fast; they run on the calling goroutine.
type Hooks struct {
	// OnRetry fires before each retry wait, with the attempt that failed.
	OnRetry func(resource string, attempt int, err error)

	// OnCircuitStateChange fires on every circuit transition.
	OnCircuitStateChange func(resource string, from, to State)

	// OnBulkheadReject fires when the bulkhead rejects an admission.
	OnBulkheadReject func(resource string)

	// OnTimeout fires when an attempt exceeds its deadline.
	OnTimeout func(resource string)

	// OnRateLimitReject fires when the rate limiter rejects a call.
	OnRateLimitReject func(resource string)
}

// merge layers h over base so both sets of callbacks fire.
func (h Hooks) merge(base Hooks) Hooks {
	out := base
	if h.OnRetry != nil {
		prev := out.OnRetry
		out.OnRetry = func(r string, a int, err error) {
			if prev != nil {
				prev(r, a, err)
			}
			h.OnRetry(r, a, err)
		}
	}
	if h.OnCircuitStateChange != nil {
		prev := out.OnCircuitStateChange
		out.OnCircuitStateChange = func(r string, from, to State) {
			if prev != nil {
				prev(r, from, to)
			}
			h.OnCircuitStateChange(r, from, to)
		}
	}
	if h.OnBulkheadReject != nil {
		prev := out.OnBulkheadReject
		out.OnBulkheadReject = func(r string) {
			if prev != nil {
				prev(r)
			}
			h.OnBulkheadReject(r)
		}
	}
	if h.OnTimeout != nil {
		prev := out.OnTimeout
		out.OnTimeout = func(r string) {
			if prev != nil {
				prev(r)
			}
			h.OnTimeout(r)
		}
	}
	if h.OnRateLimitReject != nil {
		prev := out.OnRateLimitReject
		out.OnRateLimitReject = func(r string) {
			if prev != nil {
				prev(r)
			}
			h.OnRateLimitReject(r)
		}
	}
	return out
}
