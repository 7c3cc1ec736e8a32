package shell

import (
	_ "embed"
	"html/template"
)

// clientJS is the browser side of the remote history protocol.
// It is served at "{base}/_nav/client.js".
//
//go:embed assets/navroute.js
var clientJS []byte

//go:embed assets/shell.html.tmpl
var shellSource string

var shellTemplate = template.Must(template.New("shell").Parse(shellSource))

type shellPage struct {
	Title     string
	ClientSrc string
	State     Resolution
}
