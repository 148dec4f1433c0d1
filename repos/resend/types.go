package resend

// ReminderAlert describes a reminder that reached the error state.
type ReminderAlert struct {
	ReminderID string
	Title      string
	Reason     string
}
