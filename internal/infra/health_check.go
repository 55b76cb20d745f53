package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExecutableCheckInterval is how often the running binary is checked for replacement.
const ExecutableCheckInterval = 5 * time.Second

// MonitorExecutable signals once when the running binary is replaced on disk,
// so a supervisor can restart the bot on deploy.
func MonitorExecutable(ctx context.Context, interval time.Duration) <-chan struct{} {
	exeFilename, err := os.Executable()
	if err != nil {
		log.WithField("object", "Monitor").WithField("error", err.Error()).Warn("cant resolve executable path")
		return make(chan struct{})
	}
	return monitorFile(ctx, exeFilename, interval)
}

// monitorFile closes the returned channel when the file's mtime changes. It never
// fires if the file cannot be stat'ed on start or ctx ends first.
func monitorFile(ctx context.Context, filename string, interval time.Duration) <-chan struct{} {
	entry := log.WithField("object", "Monitor").WithField("file", filename)
	changed := make(chan struct{})

	go func() {
		stat, err := os.Stat(filename)
		if err != nil {
			entry.WithField("error", err.Error()).Warn("cant stat monitored file")
			return
		}
		original := stat.ModTime()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(filename)
				if err != nil {
					entry.WithField("error", err.Error()).Debug("monitored file is not readable")
					continue
				}
				if !original.Equal(stat.ModTime()) {
					entry.Info("monitored file changed")
					close(changed)
					return
				}
			}
		}
	}()
	return changed
}
