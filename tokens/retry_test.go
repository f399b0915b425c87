package tokens

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type rpcError struct{ code int }

func (e rpcError) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e rpcError) ErrorCode() int { return e.code }

func TestClassify(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		expectedClass Class
	}{
		{"deadline exceeded", fmt.Errorf("calling: %w", context.DeadlineExceeded), ClassTransient},
		{"canceled", context.Canceled, ClassTerminal},
		{"net timeout", timeoutError{}, ClassTransient},
		{"server internal error", rpcError{code: -32603}, ClassTransient},
		{"execution reverted", rpcError{code: 3}, ClassTerminal},
		{"rate limited", errors.New("429 Too Many Requests"), ClassTransient},
		{"unknown", errors.New("unexpected failure"), ClassTerminal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedClass, Classify(tc.err).Class)
		})
	}
}
