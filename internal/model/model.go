package model

import "time"

type User struct {
	ID        string
	ChatID    int64 // identity on the chat platform, unique
	Username  string
	FirstName string
	LastName  string
	PartnerID *string
	CreatedAt time.Time
}

// DisplayName prefers the first name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "partner"
}

type Appointment struct {
	ID           int64
	Title        string
	Description  string
	StartsAt     time.Time
	Location     string
	CreatedBy    string
	SharedWith   *string // partner snapshot taken at creation, never re-linked
	ReminderSent bool
	CreatedAt    time.Time
}

// VisibleTo reports whether userID may see this appointment.
func (a *Appointment) VisibleTo(userID string) bool {
	if a.CreatedBy == userID {
		return true
	}
	return a.SharedWith != nil && *a.SharedWith == userID
}

type Checklist struct {
	ID          int64
	Title       string
	Description string
	CreatedBy   string
	SharedWith  *string
	CreatedAt   time.Time
}

func (c *Checklist) VisibleTo(userID string) bool {
	if c.CreatedBy == userID {
		return true
	}
	return c.SharedWith != nil && *c.SharedWith == userID
}

type ChecklistItem struct {
	ID          int64
	ChecklistID int64
	Text        string
	Completed   bool
	CompletedBy *string
	CompletedAt *time.Time
	CreatedAt   time.Time
}
