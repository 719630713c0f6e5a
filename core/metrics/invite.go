package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values used by the invite flow.
const (
	ResultMember    = "member"
	ResultNonMember = "non_member"
	ResultError     = "error"
	ResultCreated   = "created"
	ResultFailed    = "failed"
	ResultOK        = "ok"
	ResultStale     = "stale"
)

func init() {
	register(membershipChecksTotal, inviteLinksTotal, expiryEditsTotal)
}

var (
	membershipChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_checks_total",
			Help:      "Channel membership lookups by result (member/non_member/error).",
		},
		[]string{"result"},
	)

	inviteLinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_links_total",
			Help:      "Invite link creation attempts by result (created/failed).",
		},
		[]string{"result"},
	)

	expiryEditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_edits_total",
			Help:      "Deferred expiry notices by result (ok/failed/stale).",
		},
		[]string{"result"},
	)
)

// IncMembershipCheck counts a membership lookup.
func IncMembershipCheck(result string) {
	membershipChecksTotal.WithLabelValues(norm(result)).Inc()
}

// IncInviteLink counts an invite link creation attempt.
func IncInviteLink(result string) {
	inviteLinksTotal.WithLabelValues(norm(result)).Inc()
}

// IncExpiryEdit counts a fired expiry task.
func IncExpiryEdit(result string) {
	expiryEditsTotal.WithLabelValues(norm(result)).Inc()
}
