package host

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"turbotransfer/models"

	"go.uber.org/zap"
)

const (
	CommandLock     = "lock"
	CommandSleep    = "sleep"
	CommandShutdown = "shutdown"
)

// commandTable maps a power command to the argv that performs it, per GOOS.
var commandTable = map[string]map[string][]string{
	"windows": {
		CommandLock:     {"rundll32.exe", "user32.dll,LockWorkStation"},
		CommandSleep:    {"rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0"},
		CommandShutdown: {"shutdown", "/s", "/t", "0"},
	},
	"darwin": {
		CommandLock:     {"pmset", "displaysleepnow"},
		CommandSleep:    {"pmset", "sleepnow"},
		CommandShutdown: {"shutdown", "-h", "now"},
	},
	"linux": {
		CommandLock:     {"loginctl", "lock-session"},
		CommandSleep:    {"systemctl", "suspend"},
		CommandShutdown: {"systemctl", "poweroff"},
	},
}

// Runner executes an external program.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// HostService describes the host machine and runs power commands on it.
type HostService interface {
	Info() models.HostInfo
	Execute(ctx context.Context, command string) error
}

type Options struct {
	Logger    *zap.Logger
	Runner    Runner
	GOOS      string
	PrimaryIP func() string
	Hostname  func() (string, error)
}

type DefaultHostService struct {
	logger    *zap.Logger
	run       Runner
	goos      string
	primaryIP func() string
	hostname  func() (string, error)
}

func NewHostService(opts Options) *DefaultHostService {
	s := &DefaultHostService{
		logger:    opts.Logger,
		run:       opts.Runner,
		goos:      opts.GOOS,
		primaryIP: opts.PrimaryIP,
		hostname:  opts.Hostname,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.run == nil {
		s.run = execRunner
	}
	if s.goos == "" {
		s.goos = runtime.GOOS
	}
	if s.primaryIP == nil {
		s.primaryIP = func() string { return "127.0.0.1" }
	}
	if s.hostname == nil {
		s.hostname = os.Hostname
	}
	return s
}

func (s *DefaultHostService) Info() models.HostInfo {
	name, err := s.hostname()
	if err != nil || name == "" {
		name = "unknown-host"
	}
	return models.HostInfo{
		HostName:  name,
		Status:    "online",
		Platform:  s.goos,
		PrimaryIP: s.primaryIP(),
	}
}

// Execute runs lock, sleep or shutdown on the host.
func (s *DefaultHostService) Execute(ctx context.Context, command string) error {
	if command != CommandLock && command != CommandSleep && command != CommandShutdown {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	argv, ok := commandTable[s.goos][command]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedPlatform, command, s.goos)
	}
	if err := s.run(ctx, argv[0], argv[1:]...); err != nil {
		s.logger.Error("Host: command failed", zap.String("command", command), zap.Error(err))
		return fmt.Errorf("Host: %s failed: %w", command, err)
	}
	s.logger.Info("Host: command executed", zap.String("command", command))
	return nil
}
