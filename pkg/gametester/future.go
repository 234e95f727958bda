package gametester

// Callback receives the Response of an asynchronous call
type Callback func(Response)

// Future is the pending result of an asynchronous call.
//
// The callback, if any, runs exactly once on the request goroutine; Done is
// closed only after it returns.
type Future struct {
	done chan struct{}
	resp Response
}

func start(call func() Response, callback Callback) *Future {
	f := &Future{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		f.resp = call()
		if callback != nil {
			callback(f.resp)
		}
	}()

	return f
}

// Done is closed once the call has completed and the callback returned
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call completes and returns its Response
func (f *Future) Wait() Response {
	<-f.done
	return f.resp
}

// Response returns the result without blocking; ok is false while pending
func (f *Future) Response() (resp Response, ok bool) {
	select {
	case <-f.done:
		return f.resp, true
	default:
		return Response{}, false
	}
}
