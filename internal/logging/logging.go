// Package logging provides the single structured logger constructor shared
// by every core package. Each package keeps its own package-level logger
// variable and SetLogger function (mirroring Synnergy's SetWalletLogger
// pattern) rather than importing a global singleton directly, so tests can
// silence or redirect one package's logs without affecting another's.
package logging

import "github.com/sirupsen/logrus"

// New returns a fresh structured logger with sane defaults for a service
// process (JSON off, text formatter with full timestamps, fields printed in
// sorted key order).
func New() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
