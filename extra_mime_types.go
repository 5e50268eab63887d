package main

import (
	"mime"

	"gitlab.com/gitlab-org/labkit/log"
)

// media uploads that system mime databases commonly miss
var extraMIMETypes = map[string]string{
	".avif":    "image/avif",
	".csv":     "text/csv",
	".geojson": "application/geo+json",
	".ndjson":  "application/x-ndjson",
}

func addExtraMIMETypes() {
	for ext, mimeType := range extraMIMETypes {
		if err := mime.AddExtensionType(ext, mimeType); err != nil {
			log.WithError(err).Errorf("failed to add extension: %q with MIME type: %q", ext, mimeType)
		}
	}
}
