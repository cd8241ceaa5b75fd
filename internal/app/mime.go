package app

import (
	"log"
	"mime"
)

// Types the embedded assets and uploads rely on; minimal containers often
// ship without /etc/mime.types.
var assetTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".webm": "video/webm",
}

func init() {
	for ext, typ := range assetTypes {
		registerMimeType(ext, typ)
	}
}

func registerMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: register MIME type for %s: %v", ext, err)
	}
}
