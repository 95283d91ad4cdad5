package prompt

import (
	"os"
	"os/user"
	"strings"
)

// DefaultFormat expands to user@host:cwd$ .
const DefaultFormat = `\u@\h:\w\$ `

// Text expands the escapes \u (user), \h (host), \w (working directory with
// $HOME shortened to ~) and \$ ('#' for root, '$' otherwise) in format.
func Text(format string) string {
	userName, hostName, cwd := "username", "hostname", "~"
	homeDir, ok := os.LookupEnv("HOME")

	if curUser, err := user.Current(); err == nil {
		userName = curUser.Username
	}

	if curHostName, err := os.Hostname(); err == nil {
		hostName = curHostName
	}

	if curCwd, err := os.Getwd(); err == nil {
		cwd = curCwd
		if ok && homeDir != "" && strings.HasPrefix(curCwd, homeDir) {
			cwd = strings.Replace(curCwd, homeDir, "~", 1)
		}
	}

	mark := "$"
	if os.Geteuid() == 0 {
		mark = "#"
	}

	return strings.NewReplacer(
		`\u`, userName,
		`\h`, hostName,
		`\w`, cwd,
		`\$`, mark,
	).Replace(format)
}
