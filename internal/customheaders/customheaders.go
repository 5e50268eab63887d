package customheaders

import (
	"bufio"
	"errors"
	"net/http"
	"net/textproto"
	"strings"
)

var errInvalidHeaderParameter = errors.New("invalid syntax specified as header parameter")

// ParseHeaderString parses a list of "Name: value" strings into a header map.
func ParseHeaderString(customHeaders []string) (http.Header, error) {
	headers := http.Header{}

	for _, keyValueString := range customHeaders {
		keyValueString = strings.TrimSpace(keyValueString) + "\n\n"
		tp := textproto.NewReader(bufio.NewReader(strings.NewReader(keyValueString)))

		keyValue, err := tp.ReadMIMEHeader()
		if err != nil {
			return nil, errInvalidHeaderParameter
		}

		for k, v := range keyValue {
			k = textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(k))
			headers[k] = append(headers[k], v...)
		}
	}

	return headers, nil
}

// NewMiddleware adds the configured headers to every response.
func NewMiddleware(handler http.Handler, headers http.Header) http.Handler {
	if len(headers) == 0 {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, values := range headers {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}

		handler.ServeHTTP(w, r)
	})
}
