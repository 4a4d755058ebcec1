package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

type temporary interface {
	Temporary() bool
}

// IsTransient reports whether err is worth retrying: errors that declare
// themselves temporary, network timeouts, and connection resets.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var t temporary
	if errors.As(err, &t) && t.Temporary() {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection reset by peer", "i/o timeout", "broken pipe", "server closed idle connection"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
