package telegram

// Bot commands understood in private chat.
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)
