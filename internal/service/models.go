package service

import (
	"context"
	"fmt"
	"sort"
)

// MissingModels lists the configured models the upstream does not offer.
// Gateways that do not implement model listing make this an error, not a
// verdict.
func (s *Service) MissingModels(ctx context.Context) ([]string, error) {
	models, err := s.llmClient.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	offered := make(map[string]bool, len(models))
	for _, m := range models {
		offered[m.ID] = true
	}

	var missing []string
	seen := make(map[string]bool)
	for _, name := range []string{s.config.EnhanceModel, s.config.GenerateModel, s.config.ModifyModel} {
		if name == "" || seen[name] || offered[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing, nil
}
