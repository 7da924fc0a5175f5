package http

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam describes one request. Body may be nil, an io.Reader, a []byte
// or any value that is marshalled to JSON. Response, when set, receives the
// JSON-decoded response body.
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	Timeout time.Duration
}
