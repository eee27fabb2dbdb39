package util

import (
	"os"
)

// UserHome returns the current user's home directory.
// Falls back to $HOME and then $USERPROFILE if os.UserHomeDir fails, and to
// the current working directory when neither is set, which keeps the node
// usable in containers without a home directory.
func UserHome() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir
	}
	for _, env := range []string{"HOME", "USERPROFILE"} {
		if home := os.Getenv(env); home != "" {
			log.WithError(err).WithField("env", env).Warn("os.UserHomeDir failed, falling back to environment")
			return home
		}
	}
	// The keystore creates its directory 0700, so key material stays private
	// even here.
	if wd, wdErr := os.Getwd(); wdErr == nil {
		log.WithError(err).Warn("os.UserHomeDir and $HOME unavailable; falling back to working directory")
		return wd
	}
	panic("go-rns: unable to determine home directory; set $HOME environment variable")
}
