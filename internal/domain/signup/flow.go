package signup

// Package signup models the invitation-gated signup flow as an explicit
// state machine with pure transition functions. Persistence and all
// network effects live elsewhere; this package only encodes which
// transitions are legal and what each stage carries.

import (
	"errors"
	"fmt"
	"time"

	"github.com/peoplehub/portal-api/internal/domain/model"
)

// Stage identifies the current position of a signup flow.
type Stage string

const (
	// StageInvitationCheck is the initial stage. It doubles as the
	// terminal failure stage when the token is missing or invalid:
	// a flow that is in this stage with GateFailed set has no path
	// forward without a new invitation.
	StageInvitationCheck Stage = "invitation_check"

	// StageSignup means the token validated; the form is visible with
	// identity fields locked to the invitation.
	StageSignup Stage = "signup"

	// StageVerify means registration was submitted and the identity
	// provider requires an emailed confirmation code.
	StageVerify Stage = "verify"
)

// MsgInvitationRequired is the fixed gate message for a missing token.
const MsgInvitationRequired = "an invitation is required"

// ErrInvalidTransition is returned when a transition is applied to a
// flow that is not in the expected stage.
var ErrInvalidTransition = errors.New("invalid signup transition")

// Flow is the transient state of one signup attempt. It lives only for
// the duration of the flow (persisted under a TTL, keyed by token).
type Flow struct {
	Token string `json:"token"`
	Stage Stage  `json:"stage"`

	// Profile holds the locked identity fields once the invitation has
	// validated. Zero until StageSignup.
	Profile model.Profile `json:"profile"`

	// GateFailed marks the terminal invitation_check failure and
	// carries the human-readable reason shown to the user.
	GateFailed bool   `json:"gate_failed"`
	GateReason string `json:"gate_reason,omitempty"`

	// LastError is the most recent recoverable step error. It never
	// changes the stage; the user re-submits the same step.
	LastError string `json:"last_error,omitempty"`

	// Credential holds the registered password in encrypted form while
	// the flow waits on confirmation, so the final auto-sign-in can use
	// it. Empty outside StageVerify.
	Credential string `json:"credential,omitempty"`

	// Destination is the masked delivery hint for the confirmation code
	// (e.g. "j***@co.com"). Set on StageVerify when the provider
	// reports one.
	Destination string `json:"destination,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the flow can make no further progress.
func (f Flow) Terminal() bool {
	return f.Stage == StageInvitationCheck && f.GateFailed
}

// New starts a flow for the given token value. An empty token is itself
// a defined input: the flow begins, and ends, in the terminal gate
// failure with the fixed invitation-required message, and the caller
// must not perform any validation lookup.
func New(token string, now time.Time) Flow {
	f := Flow{
		Token:     token,
		Stage:     StageInvitationCheck,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if token == "" {
		f.GateFailed = true
		f.GateReason = MsgInvitationRequired
	}
	return f
}

// Validated transitions invitation_check → signup after the invitation
// store confirmed the token. The profile locks the form fields.
func Validated(f Flow, profile model.Profile, now time.Time) (Flow, error) {
	if f.Stage != StageInvitationCheck || f.GateFailed {
		return f, fmt.Errorf("%w: validated from %s", ErrInvalidTransition, f.describe())
	}
	f.Stage = StageSignup
	f.Profile = profile
	f.LastError = ""
	f.UpdatedAt = now
	return f, nil
}

// GateFail transitions invitation_check → terminal invitation_check
// with the reason the invitation cannot be used (not found, expired,
// already used, or a generic transport-failure message). The reason is
// surfaced to the user as-is.
func GateFail(f Flow, reason string, now time.Time) (Flow, error) {
	if f.Stage != StageInvitationCheck {
		return f, fmt.Errorf("%w: gate failure from %s", ErrInvalidTransition, f.describe())
	}
	f.GateFailed = true
	f.GateReason = reason
	f.UpdatedAt = now
	return f, nil
}

// AwaitConfirmation transitions signup → verify once the identity
// provider reported that a confirmation step follows registration.
// credential is the encrypted registered password kept for the final
// auto-sign-in; destination is the provider's masked delivery hint.
func AwaitConfirmation(f Flow, credential, destination string, now time.Time) (Flow, error) {
	if f.Stage != StageSignup {
		return f, fmt.Errorf("%w: await confirmation from %s", ErrInvalidTransition, f.describe())
	}
	f.Stage = StageVerify
	f.Credential = credential
	f.Destination = destination
	f.LastError = ""
	f.UpdatedAt = now
	return f, nil
}

// StepFailed records a recoverable error on the current stage without
// moving it: the user edits their input and re-submits. It is legal on
// the signup and verify stages only; gate failures are terminal and go
// through GateFail instead.
func StepFailed(f Flow, msg string, now time.Time) (Flow, error) {
	if f.Stage != StageSignup && f.Stage != StageVerify {
		return f, fmt.Errorf("%w: step failure from %s", ErrInvalidTransition, f.describe())
	}
	f.LastError = msg
	f.UpdatedAt = now
	return f, nil
}

// CanRegister reports whether a registration submission is acceptable.
func (f Flow) CanRegister() bool { return f.Stage == StageSignup }

// CanConfirm reports whether a confirmation-code submission is
// acceptable.
func (f Flow) CanConfirm() bool { return f.Stage == StageVerify }

func (f Flow) describe() string {
	if f.Terminal() {
		return string(f.Stage) + " (terminal)"
	}
	return string(f.Stage)
}
