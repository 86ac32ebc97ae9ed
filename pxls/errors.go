package pxls

import (
	"errors"
	"fmt"
)

// settings validation errors, raised at construction and never later
var ErrMissingSite = errors.New("missing site base url")
var ErrMissingEventHandler = errors.New("missing event handler")

type RequestErrorKind int

const (
	// the request never produced a response
	RequestErrorHttp RequestErrorKind = iota
	// the response body could not be read
	RequestErrorBody
	// the response body was not valid json for the expected document
	RequestErrorParse
	// the response body had the wrong shape, e.g. a pixel buffer
	// whose length does not match the board dimensions
	RequestErrorFormat
)

func (self RequestErrorKind) String() string {
	switch self {
	case RequestErrorHttp:
		return "http"
	case RequestErrorBody:
		return "body"
	case RequestErrorParse:
		return "parse"
	case RequestErrorFormat:
		return "format"
	default:
		return "unknown"
	}
}

// RequestError is a failed fetch of one http resource.
// The cache slot the fetch was populating stays empty so that
// a later accessor call retries.
type RequestError struct {
	Kind RequestErrorKind
	Path string
	Err  error
}

func (self *RequestError) Error() string {
	if self.Err == nil {
		return fmt.Sprintf("request %s: %s", self.Path, self.Kind)
	}
	return fmt.Sprintf("request %s: %s: %s", self.Path, self.Kind, self.Err)
}

func (self *RequestError) Unwrap() error {
	return self.Err
}

type ConnectErrorKind int

const (
	// the configured site base has a scheme that cannot map to a
	// websocket scheme. permanent, excluded from the retry loop.
	ConnectErrorInvalidSiteScheme ConnectErrorKind = iota
	// the websocket handshake failed
	ConnectErrorWebsocketConnectFailed
	// the board info fetch after the handshake failed
	ConnectErrorInfoFailed
)

func (self ConnectErrorKind) String() string {
	switch self {
	case ConnectErrorInvalidSiteScheme:
		return "invalid site scheme"
	case ConnectErrorWebsocketConnectFailed:
		return "websocket connect failed"
	case ConnectErrorInfoFailed:
		return "info failed"
	default:
		return "unknown"
	}
}

// ConnectError is a failed connection attempt.
type ConnectError struct {
	Kind   ConnectErrorKind
	Scheme string
	Err    error
}

func (self *ConnectError) Error() string {
	switch self.Kind {
	case ConnectErrorInvalidSiteScheme:
		return fmt.Sprintf("connect: %s: %q", self.Kind, self.Scheme)
	default:
		return fmt.Sprintf("connect: %s: %s", self.Kind, self.Err)
	}
}

func (self *ConnectError) Unwrap() error {
	return self.Err
}

// Permanent is whether retrying the connection can never succeed.
func (self *ConnectError) Permanent() bool {
	return self.Kind == ConnectErrorInvalidSiteScheme
}

type ConsistencyErrorKind int

const (
	// a pixel event addressed a coordinate outside the board
	ConsistencyPixelOutOfRange ConsistencyErrorKind = iota
	// the timestamp buffer is populated but the canvas epoch is not
	ConsistencyMissingEpoch
	// a pixel age does not fit a 32-bit second count.
	// this means an assumption broke, not a transient fault.
	ConsistencyUnrepresentableAge
)

func (self ConsistencyErrorKind) String() string {
	switch self {
	case ConsistencyPixelOutOfRange:
		return "pixel out of range"
	case ConsistencyMissingEpoch:
		return "timestamps exist but canvas has no start time"
	case ConsistencyUnrepresentableAge:
		return "unrepresentable pixel age"
	default:
		return "unknown"
	}
}

// ConsistencyError is an internal invariant violation detected before
// it could corrupt cache state.
type ConsistencyError struct {
	Kind   ConsistencyErrorKind
	Detail string
}

func (self *ConsistencyError) Error() string {
	if self.Detail == "" {
		return fmt.Sprintf("consistency: %s", self.Kind)
	}
	return fmt.Sprintf("consistency: %s (%s)", self.Kind, self.Detail)
}
