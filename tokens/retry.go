package tokens

import (
	"context"
	"errors"
	"net"
	"strings"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

// jsonRPCError matches go-ethereum rpc errors carrying a server code.
type jsonRPCError interface {
	error
	ErrorCode() int
}

// Classify decides whether a failed contract call is worth another attempt.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	var rpcErr jsonRPCError
	if errors.As(err, &rpcErr) {
		// reverts come back as -32000 or 3 and are terminal
		if rpcErr.ErrorCode() == -32603 || rpcErr.ErrorCode() == -32005 {
			return Decision{Class: ClassTransient, Reason: "jsonrpc_server_transient"}
		}
		return Decision{Class: ClassTerminal, Reason: "jsonrpc_terminal"}
	}

	lower := strings.ToLower(err.Error())
	for _, token := range transientMessageTokens {
		if strings.Contains(lower, token) {
			return Decision{Class: ClassTransient, Reason: "message_transient"}
		}
	}

	return Decision{Class: ClassTerminal, Reason: "unknown_terminal_default"}
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"too many requests",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
}
