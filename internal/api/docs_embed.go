//go:build embed_openapi

package api

import "huntnav/openapi"

func openAPILoad() ([]byte, error) { return openapi.Spec, nil }
