package tools

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

var isEnabled = true
var printTimestamp = true

func EnableLogger() {
	isEnabled = true
}

func DisableLogger() {
	isEnabled = false
}

func EnableLoggerTimestamp() {
	printTimestamp = true
}

func DisableLoggerTimestamp() {
	printTimestamp = false
}

// LogOutput logs user facing progress messages, unless the logger was disabled
func LogOutput(val ...interface{}) {
	if !isEnabled {
		return
	}
	msg := fmt.Sprintln(val...)
	if printTimestamp {
		msg = "[" + time.Now().Format("2006-01-02 15.04:05.000") + "] " + msg
	}
	glog.InfoDepth(1, msg)
	fmt.Print(msg)
}
