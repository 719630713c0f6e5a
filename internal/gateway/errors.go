package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/m3rciful/invitebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Kind is the narrow failure category surfaced to callers of the gateway.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindPermission  Kind = "permission"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindNotModified Kind = "not_modified"
	KindUnknown     Kind = "unknown"
)

// Error wraps a failed gateway call.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s: %s (%d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is picked up by the handler summary log as err_code.
func (e *Error) Code() string { return string(e.Kind) }

// KindOf returns the kind of a gateway error anywhere in the chain, or
// KindUnknown for foreign errors. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a gateway error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Classify wraps err into *Error for op. Errors that are already classified are
// returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return err
	}
	status := statusFromError(err)
	return &Error{Op: op, Kind: kindFromError(err, status), Status: status, Err: err}
}

func kindFromError(err error, status int) Kind {
	if netutil.IsNetwork(err) {
		return KindNetwork
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return KindRateLimited
	}

	desc := strings.ToLower(err.Error())
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		desc = strings.ToLower(apiErr.Description)
	}

	switch {
	case strings.Contains(desc, "not modified"):
		return KindNotModified
	case strings.Contains(desc, "not enough rights"),
		strings.Contains(desc, "member list is inaccessible"),
		strings.Contains(desc, "bot is not a member"),
		strings.Contains(desc, "need administrator rights"):
		return KindPermission
	case strings.Contains(desc, "not found"),
		strings.Contains(desc, "participant_id_invalid"),
		strings.Contains(desc, "user_id_invalid"):
		return KindNotFound
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if status >= http.StatusInternalServerError {
		return KindNetwork
	}
	return KindUnknown
}

// statusFromError extracts the API status code. Telebot formats unknown API
// errors as "telegram: <description> (<code>)".
func statusFromError(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := err.Error()
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lastOpen+1 : lastClose])); convErr == nil {
			return code
		}
	}
	return 0
}
