package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNetwork(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("Bad Request: chat not found"), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "wrapped deadline", err: fmt.Errorf("telegram: %w", context.DeadlineExceeded), want: true},
		{name: "dial", err: dial, want: true},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "api.telegram.org"}, want: true},
		{name: "url wrapping dial", err: &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, want: true},
		{name: "url wrapping plain", err: &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: errors.New("x")}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetwork(tt.err))
		})
	}
}
