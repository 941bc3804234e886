// Package views holds the HTML templates and the data they render.
package views

import (
	"embed"
	"encoding/gob"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Template names.
const (
	Index    = "index.html"
	Register = "register.html"
	Login    = "login.html"
	Secrets  = "secrets.html"
	Error    = "error.html"
)

// Flash categories.
const (
	CategoryError = "error"
	CategoryInfo  = "info"
)

// Flash is a one-time notice shown on the next rendered page.
type Flash struct {
	Message  string
	Category string
}

func init() {
	// flashes travel inside the gob-encoded cookie session
	gob.Register(Flash{})
}

// User is the subset of the account a page may show.
type User struct {
	Name  string
	Email string
}

// Page is the data every template receives.
type Page struct {
	Title   string
	User    *User
	Flashes []Flash
	// Form echoes submitted values back into a redisplayed form.
	Form map[string]string
}

// Authenticated reports whether a user is logged in.
func (p Page) Authenticated() bool {
	return p.User != nil
}

// Load parses every embedded template.
func Load() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}
