package logging

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/log"

	"github.com/pandaproject/edge/internal/request"
)

// ConfigureLogging will initialize the system logger.
func ConfigureLogging(format string, verbose bool) error {
	var levelOption log.LoggerOption

	if format == "" {
		format = "json"
	}

	if verbose {
		levelOption = log.WithLogLevel("debug")
	} else {
		levelOption = log.WithLogLevel("info")
	}

	_, err := log.Initialize(
		log.WithFormatter(format),
		levelOption,
	)
	return err
}

// getAccessLogger will return the default logger, except when the log format
// is text, in which case a combined HTTP access logger will be configured.
func getAccessLogger(format string) (*logrus.Logger, error) {
	if format != "text" && format != "" {
		return logrus.StandardLogger(), nil
	}

	accessLogger := log.New()
	_, err := log.Initialize(
		log.WithLogger(accessLogger),
		log.WithFormatter("combined"),
	)
	if err != nil {
		return nil, err
	}

	return accessLogger, nil
}

// AccessLogger configures the HTTP access logger middleware. Handlers that
// must not produce access-log entries (the media tree) are mounted outside
// of this middleware, see the routing in the main package.
func AccessLogger(handler http.Handler, format string) (http.Handler, error) {
	accessLogger, err := getAccessLogger(format)
	if err != nil {
		return nil, err
	}

	return log.AccessLogger(handler,
		log.WithExtraFields(getExtraLogFields),
		log.WithAccessLogger(accessLogger),
		log.WithXFFAllowed(func(sip string) bool { return false }),
	), nil
}

func getExtraLogFields(r *http.Request) log.Fields {
	return log.Fields{
		"edge_https": request.IsHTTPS(r),
		"edge_host":  r.Host,
	}
}

// LogRequest will inject request host and path to the logged messages
func LogRequest(r *http.Request) *logrus.Entry {
	return log.WithFields(log.Fields{
		"host": r.Host,
		"path": r.URL.Path,
	})
}
