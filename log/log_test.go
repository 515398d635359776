package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleAmount   = "1.5"
	sampleAddress  = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
	sampleBalances = []string{"0", "1.5", "0.000000000000000001"}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("insufficient funds for gas * price + value")
)

func doLogs() {
	Infof("deposit of %s submitted by %s", sampleAmount, sampleAddress)
	Debugw("refreshing deposit state", "address", sampleAddress, "action", "deposit")
	Errorf("cannot submit deposit: %v", errSample)
	Warnw("various types",
		"list", sampleBalances,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestLevelFiltering(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() {
		logTestWriter = io.Discard
		Init(LogLevelError, "stderr", nil)
	})

	buf := new(bytes.Buffer)
	logTestWriter = buf
	Init(LogLevelWarn, logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelWarn)

	Debugw("hidden debug line")
	Infow("hidden info line")
	Warnw("visible warning", "address", sampleAddress)
	Errorw(errSample, "visible error")

	out := buf.String()
	c.Assert(strings.Contains(out, "hidden"), qt.IsFalse)
	c.Assert(out, qt.Contains, "visible warning")
	c.Assert(out, qt.Contains, sampleAddress)
	c.Assert(out, qt.Contains, "insufficient funds")
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	errBuf := new(bytes.Buffer)
	logTestWriter = io.Discard
	Init(LogLevelDebug, logTestWriterName, errBuf)

	Infow("only in main output")
	Warnw("also in error output")

	c.Assert(strings.Contains(errBuf.String(), "only in main output"), qt.IsFalse)
	c.Assert(errBuf.String(), qt.Contains, "also in error output")
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
