package ledger

import (
	"fmt"
	"strings"

	"github.com/upb/audit-trail/repositories"
	"google.golang.org/grpc/status"
)

// upstream wraps a chaincode failure so callers can match ErrUpstream while
// keeping the peer's message.
func upstream(fn string, err error) error {
	return fmt.Errorf("%w: %s: %s", repositories.ErrUpstream, fn, message(err))
}

// message prefers the gRPC status message over the wrapped error text
func message(err error) string {
	if s, ok := status.FromError(err); ok && s.Message() != "" {
		return s.Message()
	}
	return err.Error()
}

func isNotFound(err error) bool {
	return strings.Contains(message(err), "does not exist")
}

func isAlreadyExists(err error) bool {
	return strings.Contains(message(err), "already exists")
}
