package templates

// Type is the closed set of notification kinds the platform emits. The
// registry carries exactly one template per type.
type Type string

const (
	ProjectInvitation   Type = "project_invitation"
	ProjectRemoval      Type = "project_removal"
	JoinRequest         Type = "join_request"
	JoinRequestApproved Type = "join_request_approved"
	JoinRequestRejected Type = "join_request_rejected"
	ProjectAnnouncement Type = "project_announcement"
	SystemAlert         Type = "system_alert"
)

// Types lists every registered type in registration order.
func Types() []Type {
	return []Type{
		ProjectInvitation,
		ProjectRemoval,
		JoinRequest,
		JoinRequestApproved,
		JoinRequestRejected,
		ProjectAnnouncement,
		SystemAlert,
	}
}

// ParseType rejects raw strings that are not registered notification types.
func ParseType(raw string) (Type, error) {
	t := Type(raw)
	if _, exists := registry[t]; !exists {
		return "", ErrUnknownTemplate
	}
	return t, nil
}
