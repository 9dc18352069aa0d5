package logging

import "fmt"

// GenerateLogrotateConfig creates a logrotate configuration for a component
func GenerateLogrotateConfig(component string) string {
	return fmt.Sprintf(`# Logrotate configuration for relaunchd %[1]s
# Install: sudo cp this file to /etc/logrotate.d/relaunchd-%[1]s

%[2]s/%[1]s/*.log {
    daily
    rotate 14
    compress
    delaycompress
    missingok
    notifempty

    # relaunchd keeps the file open across restarts of the same binary,
    # so truncate in place instead of moving it away.
    copytruncate
}
`, component, DefaultBaseDir)
}
