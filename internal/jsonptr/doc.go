// Package jsonptr resolves RFC 6901 JSON Pointers against values decoded by
// encoding/json (maps, slices and scalars). Only reads are supported.
package jsonptr
