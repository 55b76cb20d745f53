package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Contain runs f once and turns a panic into a logged error.
func Contain(id string, f func()) (panicked bool) {
	defer func() {
		if err := recover(); err != nil {
			log.WithField("job", id).Errorf("panic contained: %v, %s", err, panicFrame())
			panicked = true
		}
	}()
	f()
	return false
}

// panicFrame names the first non-runtime frame above the deferred recover.
func panicFrame() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.Function, frame.Line)
		}
		if !more {
			break
		}
	}
	return "unknown"
}
