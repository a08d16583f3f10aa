package config

import (
	"net/http"
	"sync/atomic"
)

// step is one scripted upstream answer: a status, or a transport error.
type step struct {
	status int
	err    error
}

func respond(status int) step { return step{status: status} }

func fail(err error) step { return step{err: err} }

// scriptedTransport answers the nth request with steps[n]; the last step repeats.
type scriptedTransport struct {
	steps []step
	calls atomic.Int32
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := int(s.calls.Add(1))
	st := s.steps[min(n, len(s.steps))-1]
	if st.err != nil {
		return nil, st.err
	}
	return &http.Response{StatusCode: st.status, Body: http.NoBody, Request: req}, nil
}
