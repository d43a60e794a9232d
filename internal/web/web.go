// Package web ships the upload page together with the binary
package web

import (
	"embed"
	"net/http"
)

//go:embed index.html
var files embed.FS

// FS отдает страницу для engine.StaticFS
func FS() http.FileSystem {
	return http.FS(files)
}
