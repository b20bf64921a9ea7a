package notify

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArg  string
	}{
		{"linux", "notify-send", "Active SOS Alert"},
		{"darwin", "osascript", `display notification "body \"quoted\"" with title "Active SOS Alert"`},
		{"windows", "powershell", "-NoProfile"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := command(tt.goos, "Active SOS Alert", `body "quoted"`)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Contains(t, args, tt.wantArg)
		})
	}

	_, _, err := command("plan9", "t", "b")
	assert.Error(t, err)
}

func TestPSQuote(t *testing.T) {
	assert.Equal(t, "'it''s'", psQuote("it's"))
}

func TestDesktopAvailable(t *testing.T) {
	d := &Desktop{
		goos:     "linux",
		lookPath: func(name string) (string, error) { return "/usr/bin/" + name, nil },
	}
	assert.True(t, d.Available())

	d.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	assert.False(t, d.Available())

	d.goos = "plan9"
	assert.False(t, d.Available())
}

func TestDesktopNotify(t *testing.T) {
	var gotName string
	var gotArgs []string
	d := &Desktop{
		goos: "linux",
		run: func(name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
	}
	require.NoError(t, d.Notify("Active SOS Alert", "There is 1 active SOS alert requiring attention."))
	assert.Equal(t, "notify-send", gotName)
	assert.Equal(t, []string{"--urgency=critical", "Active SOS Alert", "There is 1 active SOS alert requiring attention."}, gotArgs)

	d.run = func(string, ...string) error { return errors.New("exec failed") }
	assert.Error(t, d.Notify("t", "b"))
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)
	assert.True(t, n.Available())
	require.NoError(t, n.Notify("Active SOS Alert", "There are 2 active SOS alerts requiring attention."))
	assert.Equal(t, "\aActive SOS Alert: There are 2 active SOS alerts requiring attention.\n", buf.String())

	assert.False(t, NewTerminal(nil).Available())
	assert.False(t, Nop{}.Available())
}
