package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender is a platform-specific desktop notification hook.
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send.
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender uses osascript.
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender uses a PowerShell toast.
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("igfetch").Show($toast)
	`, title, message)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier sends desktop notifications on the current platform,
// falling back to console output only.
type Notifier struct {
	sender  NotificationSender
	enabled bool
}

// NewNotifier picks the sender for the current platform.
func NewNotifier(enabled bool) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return &Notifier{sender: sender, enabled: enabled}
}

// SendNotification prints the message and, when enabled, raises a
// desktop notification. Notification failures are ignored.
func (n *Notifier) SendNotification(title, message string) {
	if !quiet {
		fmt.Printf("\n%s: %s\n", Cyan(title), Yellow(message))
	}
	if n.enabled && n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// SendError prints and notifies an error.
func (n *Notifier) SendError(title, message string) {
	if !quiet {
		fmt.Printf("\n%s: %s\n", Red(title), Red(message))
	}
	if n.enabled && n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
