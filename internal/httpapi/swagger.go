//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// swaggerDoc is a hand-maintained subset of the API; regenerate with swag
// when handlers change.
const swaggerDoc = `{
  "swagger": "2.0",
  "info": {"title": "{{.Title}}", "description": "{{escape .Description}}", "version": "{{.Version}}"},
  "basePath": "{{.BasePath}}",
  "paths": {
    "/api/health": {"get": {"tags": ["api"], "summary": "Liveness check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/upload-audio": {"post": {"tags": ["api"], "summary": "Store an audio recording", "consumes": ["multipart/form-data"], "produces": ["application/json"],
      "parameters": [
        {"name": "file", "in": "formData", "type": "file", "required": true},
        {"name": "language", "in": "formData", "type": "string", "enum": ["english", "tiếng việt"]}
      ],
      "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "413": {"description": "Too Large"}}}},
    "/api/transcribe": {"post": {"tags": ["api"], "summary": "Transcribe a stored recording", "consumes": ["application/json"], "produces": ["application/json"],
      "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object",
        "properties": {"date_folder": {"type": "string"}, "session_folder": {"type": "string"},
          "language": {"type": "string", "enum": ["english", "tiếng việt"]},
          "model_size": {"type": "string", "enum": ["tiny", "base", "small", "medium", "large-v3"]}}}}],
      "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "429": {"description": "Too Many Requests"}, "500": {"description": "Internal Server Error"}}}},
    "/api/models": {"get": {"tags": ["api"], "summary": "List model sizes", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/status": {"get": {"tags": ["api"], "summary": "Loaded models and limits", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/transcriptions": {"get": {"tags": ["api"], "summary": "Recent transcriptions", "produces": ["application/json"],
      "parameters": [{"name": "limit", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}}
  }
}`

// SwaggerInfo holds the exported API metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "sttd API",
	Description:      "Speech-to-text service: upload audio, transcribe with whisper models.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerDoc,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
