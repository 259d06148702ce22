// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package webserver runs a minimal static file server.
//
// The server speaks just enough HTTP to answer GET requests for files
// below a document root: every response uses HTTP/1.0, carries exactly
// the Content-Length, Content-Type and Server headers, and the connection
// is closed once it has been written.
//
// This package holds the glue for running it as a process. [Run] reads
// config sources, unmarshals them into a config type, builds an [App]
// and runs it:
//
//	err := webserver.Run(
//	    ctx,
//	    appbuilder.Recover(appbuilder.OTel(builder)),
//	    config.FromYaml(defaultConfig),
//	)
//
// The wire handling itself lives in the server, request, response and
// docroot packages.
package webserver
