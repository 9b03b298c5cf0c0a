package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends desktop notifications when a run finishes.
type Notifier struct {
	Enabled bool
}

// Send displays a notification. It uses osascript on macOS and notify-send
// on Linux when available; elsewhere it does nothing.
func (n *Notifier) Send(title, message string) error {
	if n == nil || !n.Enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return sendMacOSNotification(title, message)
	case "linux":
		return sendLinuxNotification(title, message)
	default:
		return nil
	}
}

func sendMacOSNotification(title, message string) error {
	title = strings.ReplaceAll(title, `"`, `\"`)
	message = strings.ReplaceAll(message, `"`, `\"`)

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func sendLinuxNotification(title, message string) error {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return nil
	}
	if err := exec.Command(bin, "--app-name=esthersim", title, message).Run(); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// FormatRunComplete formats an Esther run completion notification.
func FormatRunComplete(deck, message string, runErr error) (title, body string) {
	if runErr != nil {
		title = "Esther run failed"
		body = fmt.Sprintf("%s: %v", deck, runErr)
		return title, body
	}
	title = "Esther run complete"
	body = deck
	if message != "" {
		body = fmt.Sprintf("%s: %s", deck, message)
	}
	return title, body
}

// FormatOutputSaved formats a notification for a converted output file.
func FormatOutputSaved(deck, path string) (title, body string) {
	return "Esther output saved", fmt.Sprintf("%s: %s", deck, path)
}
