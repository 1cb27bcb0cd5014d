package testutil

import (
	"github.com/peoplehub/portal-api/internal/domain/model"
)

// InvitationRequestBuilder builds CreateInvitationRequest values for tests
// with sensible defaults that pass validation.
type InvitationRequestBuilder struct {
	req model.CreateInvitationRequest
}

// NewInvitationRequest creates a builder with valid defaults.
func NewInvitationRequest() *InvitationRequestBuilder {
	return &InvitationRequestBuilder{
		req: model.CreateInvitationRequest{
			Email:     "new.hire@example.com",
			FirstName: "New",
			LastName:  "Hire",
			Role:      model.RoleIntern,
		},
	}
}

// WithEmail sets the invitee email.
func (b *InvitationRequestBuilder) WithEmail(email string) *InvitationRequestBuilder {
	b.req.Email = email
	return b
}

// WithName sets the invitee first and last name.
func (b *InvitationRequestBuilder) WithName(first, last string) *InvitationRequestBuilder {
	b.req.FirstName = first
	b.req.LastName = last
	return b
}

// WithRole sets the role the invitee will receive on acceptance.
func (b *InvitationRequestBuilder) WithRole(role model.Role) *InvitationRequestBuilder {
	b.req.Role = role
	return b
}

// WithDepartment sets the optional department.
func (b *InvitationRequestBuilder) WithDepartment(dept string) *InvitationRequestBuilder {
	b.req.Department = StringPtr(dept)
	return b
}

// WithPosition sets the optional position title.
func (b *InvitationRequestBuilder) WithPosition(pos string) *InvitationRequestBuilder {
	b.req.Position = StringPtr(pos)
	return b
}

// WithNote sets the optional internal note.
func (b *InvitationRequestBuilder) WithNote(note string) *InvitationRequestBuilder {
	b.req.Note = StringPtr(note)
	return b
}

// Build returns the built request.
func (b *InvitationRequestBuilder) Build() model.CreateInvitationRequest {
	return b.req
}
