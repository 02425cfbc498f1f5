package core

import "fmt"

// SystemSender is the reserved sender label of server notices.
// The account store refuses to register it as a username.
const SystemSender = "System"

// Notice texts sent to clients.
const (
	NoticeWelcome               = "Welcome to the chat!"
	NoticeInvalidMessage        = "Invalid message format"
	NoticeInvalidPrivateMessage = "Invalid private message format"
	NoticeUnknownEvent          = "Unknown event"
	NoticeInvalidCredentials    = "Invalid credentials"
)

func noticeJoined(username string) string {
	return fmt.Sprintf("%s joined the chat!", username)
}

func noticeLeft(username string) string {
	return fmt.Sprintf("%s left the chat!", username)
}

func noticeNotConnected(username string) string {
	return fmt.Sprintf("User %s is not connected.", username)
}

func privateEcho(recipient, body string) string {
	return fmt.Sprintf("(To %s) %s", recipient, body)
}
