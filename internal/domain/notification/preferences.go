package notification

import "time"

// Preferences holds the per-source email toggles of a user plus the lowest
// priority they want to be emailed about.
type Preferences struct {
	TicketStatusChanges bool     `json:"ticketStatusChanges"`
	FormSubmissions     bool     `json:"formSubmissions"`
	AuthorizationAlerts bool     `json:"authorizationAlerts"`
	SystemNotifications bool     `json:"systemNotifications"`
	AdminNotifications  bool     `json:"adminNotifications"`
	MinPriority         Priority `json:"minPriority"`
}

// Allows reports whether the toggle matching source is on. Unknown sources
// are never allowed.
func (p Preferences) Allows(source Source) bool {
	switch source {
	case SourceTicket:
		return p.TicketStatusChanges
	case SourceForm:
		return p.FormSubmissions
	case SourceAuthorization:
		return p.AuthorizationAlerts
	case SourceSystem:
		return p.SystemNotifications
	case SourceAdmin:
		return p.AdminNotifications
	default:
		return false
	}
}

// UserEmailPreferences ties Preferences to a user and the address emails go to.
type UserEmailPreferences struct {
	UserID      string      `json:"userId" binding:"required"`
	Email       string      `json:"email" binding:"required,email"`
	Preferences Preferences `json:"preferences"`
}

// DefaultPreferences enables every source at medium priority.
func DefaultPreferences() Preferences {
	return Preferences{
		TicketStatusChanges: true,
		FormSubmissions:     true,
		AuthorizationAlerts: true,
		SystemNotifications: true,
		AdminNotifications:  true,
		MinPriority:         PriorityMedium,
	}
}

// EmailConfig is the static configuration of the email channel.
type EmailConfig struct {
	FromName       string
	FromAddress    string
	BaseURL        string
	SimulatedDelay time.Duration
}
