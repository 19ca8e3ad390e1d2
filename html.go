/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"fmt"
	"html"
	"strings"
)

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body{height:100%;width:100%;margin:0;font-family:sans-serif;}main{padding:2rem;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><main>%s</main></body></html>", body))

	return htmlBody.String()
}

// arenaPage is the host display shell. Rendering of the arena itself is the
// front end's job; this page only exposes the room code and share links.
func arenaPage(cfg *Config, code string) string {
	escaped := html.EscapeString(code)
	var body strings.Builder

	body.WriteString(fmt.Sprintf("<h1>Room %s</h1>", escaped))
	body.WriteString(fmt.Sprintf("<p>Controllers join at <code>%s/controller?room=%s</code></p>", cfg.prefix, escaped))
	body.WriteString(fmt.Sprintf(`<p><img src="%s/play/%s/qr" alt="controller QR code" width="320" height="320"></p>`, cfg.prefix, escaped))
	body.WriteString(fmt.Sprintf(`<p>State stream: <code>%s/play/%s/ws</code></p>`, cfg.prefix, escaped))

	return newPage("GyroArena Room "+escaped, body.String())
}

// controllerPage is the phone entry point. A ?room=CODE query parameter is
// the deep link the QR code encodes; the front end auto-joins shortly after
// load when it is present.
func controllerPage(cfg *Config, code string) string {
	var body strings.Builder

	body.WriteString("<h1>GyroArena Controller</h1>")
	if code != "" {
		body.WriteString(fmt.Sprintf("<p>Joining room <code>%s</code>...</p>", html.EscapeString(code)))
	} else {
		body.WriteString("<p>Enter the 4-character code shown on the big screen.</p>")
	}
	body.WriteString(fmt.Sprintf(`<p>Control socket: <code>%s/controller/ws?room=CODE</code></p>`, cfg.prefix))

	return newPage("GyroArena Controller", body.String())
}

func homePage(cfg *Config) string {
	var body strings.Builder

	body.WriteString("<h1>GyroArena</h1>")
	body.WriteString(fmt.Sprintf(`<p><a href="%s/play">Start a room</a> on the big screen, then point your phone at the QR code.</p>`, cfg.prefix))
	body.WriteString(fmt.Sprintf(`<p><a href="%s/controller">Join as a controller</a></p>`, cfg.prefix))

	return newPage("GyroArena", body.String())
}
