package notification

import "sync"

// Boundary actions/codes. The email module answers every request with either
// an emailSent or emailError response carrying the request's correlation ID.
const (
	ActionEmailSent  = "emailSent"
	ActionEmailError = "emailError"

	// CodeTokenExpired marks an emailError caused by expired relay
	// credentials, distinct from a hard send failure.
	CodeTokenExpired = "token_expired"
)

type (
	// Request crosses the dispatch boundary into the email module.
	Request struct {
		ID     string                 `json:"id"`
		Action string                 `json:"action"`
		Data   map[string]interface{} `json:"data"`
	}

	// Response is the email module's correlated reply.
	Response struct {
		ID     string `json:"id"`
		Action string `json:"action"`
		Error  string `json:"error,omitempty"`
		Code   string `json:"code,omitempty"`
	}
)

// Bridge is the asynchronous message-passing channel between the engine and
// the isolated email module. Requests are posted with a correlation ID; the
// module resolves them by posting a Response back. Callers own the timeout.
type Bridge struct {
	requests chan Request

	mu      sync.Mutex
	pending map[string]chan Response
}

func NewBridge(buffer int) *Bridge {
	return &Bridge{
		requests: make(chan Request, buffer),
		pending:  make(map[string]chan Response),
	}
}

// Requests is consumed by the email module side of the boundary.
func (b *Bridge) Requests() <-chan Request { return b.requests }

// Post registers the request as pending and hands it to the email module.
// The returned channel receives exactly one correlated Response.
func (b *Bridge) Post(req Request) <-chan Response {
	ch := make(chan Response, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	b.requests <- req
	return ch
}

// Resolve delivers a response to its pending request. Responses without a
// pending request (late replies after a timeout) are dropped.
func (b *Bridge) Resolve(resp Response) {
	b.mu.Lock()
	ch, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// Cancel forgets a pending request, releasing the caller after a timeout.
func (b *Bridge) Cancel(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}
