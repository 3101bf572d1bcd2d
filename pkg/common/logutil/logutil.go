/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil provides the logging backend of the module loggers.
//
// Module loggers (component/log) filter by module level and hand the entries over to
// the provider set with log.Initialize. This provider keeps stdout free for command output.
package logutil

import (
	"io"

	"github.com/sirupsen/logrus"

	spilog "github.com/hyperledger/aries-framework-go/spi/log"
)

const moduleField = "module"

// LogrusProvider is a spi/log.LoggerProvider backed by logrus.
type LogrusProvider struct {
	base *logrus.Logger
}

// NewLogrusProvider creates a provider writing text entries to out.
// Level filtering is left to the module loggers, so every entry handed over is written.
func NewLogrusProvider(out io.Writer) *LogrusProvider {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})

	return &LogrusProvider{base: base}
}

// GetLogger returns logger for the module.
func (p *LogrusProvider) GetLogger(module string) spilog.Logger {
	return p.base.WithField(moduleField, module)
}
