// Package openapi carries the API contract so builds tagged embed_openapi can
// serve it without the file on disk.
package openapi

import _ "embed"

//go:embed openapi.yaml
var Spec []byte
