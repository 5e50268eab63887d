package httperrors

import (
	"fmt"
	"net/http"

	"gitlab.com/gitlab-org/labkit/log"
)

type content struct {
	status       int
	title        string
	statusString string
	header       string
	subHeader    string
}

var (
	content404 = content{
		http.StatusNotFound,
		"The file you're looking for could not be found (404)",
		"404",
		"The file you're looking for could not be found.",
		`<p>The resource that you are attempting to access does not exist.</p>
     <p>Make sure the address is correct and that the file hasn't been removed.</p>`,
	}

	content413 = content{
		http.StatusRequestEntityTooLarge,
		"Request Entity Too Large (413)",
		"413",
		"Request entity too large.",
		`<p>The upload you are attempting exceeds the maximum allowed size.</p>`,
	}

	content414 = content{
		http.StatusRequestURITooLong,
		"Request URI Too Long (414)",
		"414",
		"Request URI too long.",
		`<p>The URI provided was too long for the server to process.</p>`,
	}

	content429 = content{
		http.StatusTooManyRequests,
		"Too many requests (429)",
		"429",
		"Too many requests.",
		`<p>You are sending requests too quickly. Slow down and try again.</p>`,
	}

	content500 = content{
		http.StatusInternalServerError,
		"Something went wrong (500)",
		"500",
		"Whoops, something went wrong on our end.",
		`<p>Try refreshing the page, or going back and attempting the action again.</p>
     <p>Please contact your PANDA administrator if this problem persists.</p>`,
	}

	content502 = content{
		http.StatusBadGateway,
		"The application is not responding (502)",
		"502",
		"Whoops, something went wrong on our end.",
		`<p>The application server could not be reached. It may still be starting up.</p>
     <p>Please contact your PANDA administrator if this problem persists.</p>`,
	}
)

const predefinedErrorPage = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta content="width=device-width, initial-scale=1, maximum-scale=1" name="viewport">
  <title>%v</title>
  <style>
    body { color: #666; text-align: center; font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; margin: auto; font-size: 14px; }
    h1 { font-size: 56px; line-height: 100px; font-weight: 400; color: #456; }
    h2 { font-size: 24px; color: #666; line-height: 1.5em; }
    h3 { color: #456; font-size: 20px; font-weight: 400; line-height: 28px; }
    hr { max-width: 800px; margin: 18px auto; border: 0; border-top: 1px solid #EEE; border-bottom: 1px solid white; }
  </style>
</head>
<body>
  <h1>%v</h1>
  <h3>%v</h3>
  <hr />
  %v
</body>
</html>
`

func generateErrorHTML(c content) string {
	return fmt.Sprintf(predefinedErrorPage, c.title, c.statusString, c.header, c.subHeader)
}

func serveErrorPage(w http.ResponseWriter, c content) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(c.status)

	if _, err := fmt.Fprintln(w, generateErrorHTML(c)); err != nil {
		log.WithError(err).Error("could not write error response")
	}
}

// Serve404 returns a 404 error response / HTML page to the http.ResponseWriter
func Serve404(w http.ResponseWriter) {
	serveErrorPage(w, content404)
}

// Serve413 returns a 413 error response / HTML page to the http.ResponseWriter
func Serve413(w http.ResponseWriter) {
	serveErrorPage(w, content413)
}

// Serve414 returns a 414 error response / HTML page to the http.ResponseWriter
func Serve414(w http.ResponseWriter) {
	serveErrorPage(w, content414)
}

// Serve429 returns a 429 error response / HTML page to the http.ResponseWriter
func Serve429(w http.ResponseWriter) {
	serveErrorPage(w, content429)
}

// Serve500 returns a 500 error response / HTML page to the http.ResponseWriter
func Serve500(w http.ResponseWriter) {
	serveErrorPage(w, content500)
}

// Serve502 returns a 502 error response / HTML page to the http.ResponseWriter
func Serve502(w http.ResponseWriter) {
	serveErrorPage(w, content502)
}
