package main

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/errortracking"
)

var (
	errNoCertificate    = errors.New("root-cert and root-key must be provided for the TLS listeners")
	errNegativeBodySize = errors.New("max-body-size must not be negative")
	errInvalidRateBurst = errors.New("rate-burst must be at least 1 when rate-limit is set")
)

func fatal(err error, message string) {
	log.WithError(err).Fatal(message)
}

func capturingFatal(err error, message string) {
	errortracking.Capture(err, errortracking.WithStackTrace())
	fatal(err, message)
}
