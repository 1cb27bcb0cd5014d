// Package metrics collects and exposes Prometheus metrics for the portal.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcome labels for the invitation gate.
const (
	OutcomeValid    = "valid"
	OutcomeMissing  = "missing"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeConsumed = "consumed"
	OutcomeRevoked  = "revoked"
	OutcomeError    = "error"
)

// Collector records signup funnel and invitation metrics.
type Collector struct {
	gateChecks        *prometheus.CounterVec
	registrations     *prometheus.CounterVec
	confirmations     *prometheus.CounterVec
	signupsCompleted  prometheus.Counter
	invitationsIssued prometheus.Counter
	acceptFailures    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_signup_gate_checks_total",
			Help: "Invitation gate checks by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_signup_registrations_total",
			Help: "Registration submissions by result.",
		}, []string{"result"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_signup_confirmations_total",
			Help: "Confirmation-code submissions by result.",
		}, []string{"result"}),
		signupsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_signups_completed_total",
			Help: "Signups that reached a consumed invitation.",
		}),
		invitationsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_invitations_issued_total",
			Help: "Invitations created by admins.",
		}),
		acceptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_invitation_accept_failures_total",
			Help: "Accept calls that failed after the identity was confirmed.",
		}),
	}

	reg.MustRegister(
		c.gateChecks,
		c.registrations,
		c.confirmations,
		c.signupsCompleted,
		c.invitationsIssued,
		c.acceptFailures,
	)

	return c
}

// Collector methods tolerate a nil receiver so callers can treat
// metrics as optional.

// RecordGateCheck records one invitation gate check.
func (c *Collector) RecordGateCheck(outcome string) {
	if c == nil {
		return
	}
	c.gateChecks.WithLabelValues(outcome).Inc()
}

// RecordRegistration records one registration submission.
func (c *Collector) RecordRegistration(result string) {
	if c == nil {
		return
	}
	c.registrations.WithLabelValues(result).Inc()
}

// RecordConfirmation records one confirmation-code submission.
func (c *Collector) RecordConfirmation(result string) {
	if c == nil {
		return
	}
	c.confirmations.WithLabelValues(result).Inc()
}

// RecordSignupCompleted records a signup reaching acceptance.
func (c *Collector) RecordSignupCompleted() {
	if c == nil {
		return
	}
	c.signupsCompleted.Inc()
}

// RecordInvitationIssued records an admin creating an invitation.
func (c *Collector) RecordInvitationIssued() {
	if c == nil {
		return
	}
	c.invitationsIssued.Inc()
}

// RecordAcceptFailure records an accept that failed post-confirmation.
func (c *Collector) RecordAcceptFailure() {
	if c == nil {
		return
	}
	c.acceptFailures.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
