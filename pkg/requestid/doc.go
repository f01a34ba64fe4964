// Package requestid attaches a correlation identifier to every HTTP request.
//
// Middleware keeps a client supplied X-Request-ID when it is at most 128
// characters of [a-zA-Z0-9_-], otherwise it generates a UUID. The identifier
// is echoed in the response header and available through FromContext.
// LoggerExtractor feeds it to the logger package.
package requestid
