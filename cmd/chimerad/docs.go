package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           chimerad API
// @version         1.0
// @description     HTTP API for the chimerad modular assistant runtime.
//
// @contact.name   chimerad maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
