package appointment

import "cupidbot/internal/model"

// Reason is a machine-checkable failure code for the transport layer.
type Reason string

const (
	ReasonUnknownUser      Reason = "unknown_user"
	ReasonEmptyTitle       Reason = "empty_title"
	ReasonTitleTooLong     Reason = "title_too_long"
	ReasonTextTooLong      Reason = "text_too_long"
	ReasonPastDate         Reason = "past_date"
	ReasonNotFound         Reason = "not_found"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonNoFields         Reason = "no_fields"
	ReasonExtraction       Reason = "extraction_failed"
)

// Result is what the transport renders back to chat. OK with an entity on
// success; a reason code and message otherwise. Infrastructure faults are
// never folded into a Result; they travel as plain errors.
type Result struct {
	OK          bool
	Reason      Reason
	Message     string
	Appointment *model.Appointment
}

func failure(reason Reason, message string) Result {
	return Result{Reason: reason, Message: message}
}

func created(a *model.Appointment, message string) Result {
	return Result{OK: true, Message: message, Appointment: a}
}
