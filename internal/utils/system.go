package utils

import (
	"os"
	"os/user"
	"regexp"
	"runtime"
	"strings"
)

var (
	invalidDeviceChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	repeatedHyphens    = regexp.MustCompile(`-+`)
)

// Host describes the machine the CLI runs on. It is sent when registering a
// device so the dashboard can show which machine asked for a token.
type Host struct {
	Hostname string
	Username string
	OS       string
	Arch     string
}

// GetUsername returns the current username.
func GetUsername() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", err
	}
	return current.Username, nil
}

// CurrentHost collects host details. Lookups that fail fall back to the
// username, then to "device".
func CurrentHost() Host {
	username, _ := GetUsername()

	hostname, err := os.Hostname()
	if err != nil || strings.TrimSpace(hostname) == "" {
		hostname = username
	}

	return Host{
		Hostname: SanitizeDeviceName(hostname),
		Username: username,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// SanitizeDeviceName lower-cases a name, turns spaces into hyphens and drops
// everything that is not alphanumeric, a hyphen or an underscore.
func SanitizeDeviceName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidDeviceChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		return "device"
	}
	return name
}
