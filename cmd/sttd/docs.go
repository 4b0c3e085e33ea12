package main

// General API documentation for swaggo. Run `swag init -g cmd/sttd/docs.go`
// and build with -tags swagger to serve it.
//
// @title           sttd API
// @version         1.0
// @description     HTTP API for uploading recordings and transcribing them with whisper models.
//
// @contact.name   sttd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
