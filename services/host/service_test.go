package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func recorder(calls *[]call, err error) Runner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		return err
	}
}

func TestExecute_MapsCommandsPerPlatform(t *testing.T) {
	tests := []struct {
		goos    string
		command string
		want    call
	}{
		{"windows", CommandLock, call{"rundll32.exe", []string{"user32.dll,LockWorkStation"}}},
		{"windows", CommandShutdown, call{"shutdown", []string{"/s", "/t", "0"}}},
		{"linux", CommandSleep, call{"systemctl", []string{"suspend"}}},
		{"darwin", CommandLock, call{"pmset", []string{"displaysleepnow"}}},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.command, func(t *testing.T) {
			var calls []call
			svc := NewHostService(Options{GOOS: tt.goos, Runner: recorder(&calls, nil)})

			require.NoError(t, svc.Execute(context.Background(), tt.command))
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0])
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	var calls []call
	svc := NewHostService(Options{GOOS: "linux", Runner: recorder(&calls, nil)})
	assert.ErrorIs(t, svc.Execute(context.Background(), "reboot"), ErrUnknownCommand)

	svc = NewHostService(Options{GOOS: "plan9", Runner: recorder(&calls, nil)})
	assert.ErrorIs(t, svc.Execute(context.Background(), CommandLock), ErrUnsupportedPlatform)
	assert.Empty(t, calls)

	boom := errors.New("exit status 1")
	svc = NewHostService(Options{GOOS: "linux", Runner: recorder(&calls, boom)})
	assert.ErrorIs(t, svc.Execute(context.Background(), CommandLock), boom)
}

func TestInfo(t *testing.T) {
	svc := NewHostService(Options{
		GOOS:      "linux",
		PrimaryIP: func() string { return "192.168.1.20" },
		Hostname:  func() (string, error) { return "desk", nil },
	})
	info := svc.Info()
	assert.Equal(t, "desk", info.HostName)
	assert.Equal(t, "online", info.Status)
	assert.Equal(t, "linux", info.Platform)
	assert.Equal(t, "192.168.1.20", info.PrimaryIP)

	svc = NewHostService(Options{Hostname: func() (string, error) { return "", errors.New("no") }})
	assert.Equal(t, "unknown-host", svc.Info().HostName)
}
