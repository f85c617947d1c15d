package api

import (
	"fmt"

	"huntnav/internal/model"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.Policy != "" && req.Policy != "regions" && req.Policy != "centroids" {
		return fmt.Errorf("invalid policy: %s (allowed: regions, centroids)", req.Policy)
	}
	if req.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must be >= 0")
	}
	return nil
}
