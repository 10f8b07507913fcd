// Package redact masks sensitive values before they reach the logs. It covers
// the three places secrets show up in this application: outgoing HTTP headers,
// rendered local commands, and connection strings.
package redact

import (
	"regexp"
	"strings"
)

// Mask is the placeholder substituted for a hidden value.
const Mask = "***"

// sensitiveHeaders lists header names (lower-cased) whose values are never logged.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"x-api-key":           {},
	"api-key":             {},
	"x-api-token":         {},
	"x-auth-token":        {},
}

var (
	// api-key style tokens in a command line, either "--api-key VALUE" or "api_key=VALUE"
	commandKeyRegex = regexp.MustCompile(`(?i)(api[-_]?key)(?:\s+|=)\S+`)

	// userinfo part of a URL-style connection string
	dsnCredentialRegex = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/@\s]+@`)
)

// IsSensitiveHeader reports whether the named header carries credentials.
func IsSensitiveHeader(name string) bool {
	_, ok := sensitiveHeaders[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// HeaderValue masks a single header value. A value shaped like "<scheme> <secret>"
// keeps its scheme token, anything else is replaced entirely.
func HeaderValue(value string) string {
	if value == "" {
		return value
	}
	if scheme, _, found := strings.Cut(value, " "); found {
		return scheme + " " + Mask
	}
	return Mask
}

// Headers returns a copy of headers with sensitive values masked.
func Headers(headers map[string]string) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, value := range headers {
		if IsSensitiveHeader(key) {
			masked[key] = HeaderValue(value)
			continue
		}
		masked[key] = value
	}
	return masked
}

// Command masks api-key looking tokens in a rendered command line.
func Command(command string) string {
	return commandKeyRegex.ReplaceAllString(command, "$1 "+Mask)
}

// Args masks api-key looking tokens in an argument vector and joins it for logging.
func Args(argv []string) string {
	return Command(strings.Join(argv, " "))
}

// DSN strips the credentials out of a URL-style connection string.
func DSN(dsn string) string {
	return dsnCredentialRegex.ReplaceAllString(dsn, "${1}"+Mask+"@")
}

// Error returns the error text with any embedded connection credentials removed.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return DSN(Command(err.Error()))
}
