// Package http implements the HTTP handlers of the coverage web service.
//
// Handlers stay thin. They parse and validate the request, call a service and
// render the result. Every failure goes through errors.ErrorHandler so clients
// always receive an RFC 7807 problem document.
//
// Routes served from this package, mounted under /api by the app package:
//
//	POST /coverage                      multipart upload of targets + bulk workbooks
//	GET  /coverage/reports              runs whose outputs are still on disk
//	GET  /coverage/download/{filename}  one of the files written by a run
//	GET  /health, /health/ready, /health/live
//	GET  /version
//
// The Prometheus exposition endpoint is served at /metrics by MetricsHandler.
package http
