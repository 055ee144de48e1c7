// Package log provides leveled logging for the gateway process.
//
// Time/Date are not logged by default because systemd adds them for us;
// pass -logdate to enable it. Uses the prefixes documented at
// https://www.freedesktop.org/software/systemd/man/sd-daemon.html so output
// is readable both under systemd and in a plain terminal.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix = "<7>[DEBUG]   "
	InfoPrefix  = "<6>[INFO]    "
	WarnPrefix  = "<4>[WARNING] "
	ErrPrefix   = "<3>[ERROR]   "
)

var (
	DebugLog = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog  = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	ErrLog   = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	DebugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	InfoTimeLog  = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	WarnTimeLog  = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	ErrTimeLog   = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel discards output below lvl ("debug", "info", "warn", "err").
func SetLevel(lvl string) {
	DebugWriter, InfoWriter, WarnWriter = os.Stderr, os.Stderr, os.Stderr
	switch lvl {
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
	default:
		fmt.Printf("pkg/log: invalid loglevel %q, using 'debug'\n", lvl)
		SetLevel("debug")
	}
}

func SetLogDateTime(v bool) { logDateTime = v }

func printStr(v ...any) string { return fmt.Sprint(v...) }

func Debug(v ...any) {
	if DebugWriter == io.Discard {
		return
	}
	out := printStr(v...)
	if logDateTime {
		DebugTimeLog.Output(2, out)
	} else {
		DebugLog.Output(2, out)
	}
}

func Info(v ...any) {
	if InfoWriter == io.Discard {
		return
	}
	out := printStr(v...)
	if logDateTime {
		InfoTimeLog.Output(2, out)
	} else {
		InfoLog.Output(2, out)
	}
}

func Warn(v ...any) {
	if WarnWriter == io.Discard {
		return
	}
	out := printStr(v...)
	if logDateTime {
		WarnTimeLog.Output(2, out)
	} else {
		WarnLog.Output(2, out)
	}
}

func Error(v ...any) {
	if ErrWriter == io.Discard {
		return
	}
	out := printStr(v...)
	if logDateTime {
		ErrTimeLog.Output(2, out)
	} else {
		ErrLog.Output(2, out)
	}
}

// Fatal logs at error level then terminates the process. Used for
// unrecoverable startup failures such as a config that fails schema
// validation or a listener that cannot bind.
func Fatal(v ...any) {
	Error(v...)
	os.Exit(1)
}

func printfStr(format string, v ...any) string { return fmt.Sprintf(format, v...) }

func Debugf(format string, v ...any) {
	if DebugWriter == io.Discard {
		return
	}
	out := printfStr(format, v...)
	if logDateTime {
		DebugTimeLog.Output(2, out)
	} else {
		DebugLog.Output(2, out)
	}
}

func Infof(format string, v ...any) {
	if InfoWriter == io.Discard {
		return
	}
	out := printfStr(format, v...)
	if logDateTime {
		InfoTimeLog.Output(2, out)
	} else {
		InfoLog.Output(2, out)
	}
}

func Warnf(format string, v ...any) {
	if WarnWriter == io.Discard {
		return
	}
	out := printfStr(format, v...)
	if logDateTime {
		WarnTimeLog.Output(2, out)
	} else {
		WarnLog.Output(2, out)
	}
}

func Errorf(format string, v ...any) {
	if ErrWriter == io.Discard {
		return
	}
	out := printfStr(format, v...)
	if logDateTime {
		ErrTimeLog.Output(2, out)
	} else {
		ErrLog.Output(2, out)
	}
}

func Fatalf(format string, v ...any) {
	Errorf(format, v...)
	os.Exit(1)
}
