// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package rohclog carries a compressor/decompressor context's log
// provider: an atomic enable switch wrapping a pluggable backend, the
// same shape the rest of the pack reaches for (clog.Clog), with a
// logrus-backed default instead of the teacher's bare log.Logger.
package rohclog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Provider is the logging interface a caller may supply via
// SetProvider. RFC 5424-flavored levels, matching the teacher's
// LogProvider: CID and flow-context fields are the caller's to add via
// WithFields before handing rohc a Provider.
type Provider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Log is the log facade embedded in compressor/decompressor contexts.
// Output is off until LogMode(true) is called, same as the teacher's
// Clog, so a context built without logging configured stays silent.
type Log struct {
	provider Provider
	has      uint32
}

// New returns a Log backed by a logrus.Logger at the given level,
// initially disabled.
func New(level logrus.Level) Log {
	l := logrus.New()
	l.SetLevel(level)
	return Log{provider: logrusProvider{l}}
}

// LogMode enables or disables log output.
func (l *Log) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&l.has, 1)
	} else {
		atomic.StoreUint32(&l.has, 0)
	}
}

// SetProvider swaps in a caller-supplied backend, e.g. a logrus entry
// pre-populated with CID/profile fields.
func (l *Log) SetProvider(p Provider) {
	if p != nil {
		l.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (l Log) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.has) == 1 {
		l.provider.Critical(format, v...)
	}
}

// Error logs an ERROR level message.
func (l Log) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.has) == 1 {
		l.provider.Error(format, v...)
	}
}

// Warn logs a WARN level message.
func (l Log) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.has) == 1 {
		l.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG level message.
func (l Log) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.has) == 1 {
		l.provider.Debug(format, v...)
	}
}

type logrusProvider struct {
	*logrus.Logger
}

var _ Provider = logrusProvider{}

func (p logrusProvider) Critical(format string, v ...interface{}) {
	p.Logger.Errorf("[CRITICAL] "+format, v...)
}

func (p logrusProvider) Error(format string, v ...interface{}) {
	p.Logger.Errorf(format, v...)
}

func (p logrusProvider) Warn(format string, v ...interface{}) {
	p.Logger.Warnf(format, v...)
}

func (p logrusProvider) Debug(format string, v ...interface{}) {
	p.Logger.Debugf(format, v...)
}
