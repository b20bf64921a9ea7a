// Package notify raises user-visible notifications outside the dashboard.
package notify

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// Notifier delivers a titled notification.
type Notifier interface {
	// Available reports whether notifications can be shown at all.
	Available() bool
	Notify(title, body string) error
}

// Desktop sends notifications through the operating system notifier.
type Desktop struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args ...string) error
}

// NewDesktop returns a notifier for the current OS.
func NewDesktop() *Desktop {
	return &Desktop{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Available implements Notifier.
func (d *Desktop) Available() bool {
	name, _, err := command(d.goos, "", "")
	if err != nil {
		return false
	}
	_, err = d.lookPath(name)
	return err == nil
}

// Notify implements Notifier.
func (d *Desktop) Notify(title, body string) error {
	name, args, err := command(d.goos, title, body)
	if err != nil {
		return err
	}
	if err := d.run(name, args...); err != nil {
		return fmt.Errorf("notify.Notify: %w", err)
	}
	return nil
}

func command(goos, title, body string) (string, []string, error) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(body), appleQuote(title))
		return "osascript", []string{"-e", script}, nil
	case "linux", "freebsd", "openbsd":
		return "notify-send", []string{"--urgency=critical", title, body}, nil
	case "windows":
		script := fmt.Sprintf(
			"[void][Reflection.Assembly]::LoadWithPartialName('System.Windows.Forms');"+
				"$n=New-Object System.Windows.Forms.NotifyIcon;"+
				"$n.Icon=[System.Drawing.SystemIcons]::Warning;$n.Visible=$true;"+
				"$n.ShowBalloonTip(10000,%s,%s,'Warning')",
			psQuote(title), psQuote(body))
		return "powershell", []string{"-NoProfile", "-Command", script}, nil
	default:
		return "", nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Terminal rings the bell and prints the notification to a writer.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal returns a notifier writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Available implements Notifier.
func (t *Terminal) Available() bool { return t.w != nil }

// Notify implements Notifier.
func (t *Terminal) Notify(title, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "\a%s: %s\n", title, body)
	return err
}

// Auto prefers the desktop notifier and falls back to the terminal.
func Auto(fallback io.Writer) Notifier {
	if d := NewDesktop(); d.Available() {
		return d
	}
	return NewTerminal(fallback)
}

// Nop never shows anything.
type Nop struct{}

// Available implements Notifier.
func (Nop) Available() bool { return false }

// Notify implements Notifier.
func (Nop) Notify(string, string) error { return nil }
