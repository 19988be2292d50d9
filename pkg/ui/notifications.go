package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--urgency=critical", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier alerts the operator when a run needs attention, such as an
// expired session. Delivery failures are returned, never fatal.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for the current platform. Other platforms
// only get console output.
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: MacOSNotificationSender{}}
	default:
		return &Notifier{}
	}
}

// NewNotifierWithSender creates a Notifier over an explicit sender
func NewNotifierWithSender(s NotificationSender) *Notifier {
	return &Notifier{sender: s}
}

// Alert prints the message and forwards it to the desktop
func (n *Notifier) Alert(title, message string) error {
	fmt.Fprintf(Out, "\n%s: %s\n", Red(title), message)
	if n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}
