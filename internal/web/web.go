// Package web embeds the HTML templates and static assets served by the app.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/template/html/v2"
)

// Layout wraps every rendered page.
const Layout = "layouts/base"

//go:embed templates static
var assets embed.FS

// NewEngine parses the embedded templates. Template names are paths relative to
// templates/ without the extension, e.g. "users/show".
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(mustSub("templates")), ".html")
	engine.AddFunc("formatTime", formatTime)
	engine.AddFunc("shortDate", shortDate)
	return engine
}

// Static serves the embedded CSS and images.
func Static() http.FileSystem {
	return http.FS(mustSub("static"))
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(assets, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func formatTime(t time.Time) string {
	return t.UTC().Format("02 January 2006")
}

func shortDate(t time.Time) string {
	return t.UTC().Format("Jan 2006")
}
