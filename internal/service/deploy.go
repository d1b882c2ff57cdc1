package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/domain"
)

const demoSitePrefix = "nl2page-demo-"

// Deploy simulates publishing a page. Nothing leaves the process; the
// response carries the URL the page would have been published under.
func (s *Service) Deploy(ctx context.Context, req domain.DeployRequest) (*domain.DeployResponse, error) {
	if blank(req.HTMLContent) {
		return nil, domain.NewValidationError("htmlContent")
	}
	if err := s.admit(ctx, opDeploy, "", req.HTMLContent); err != nil {
		return nil, err
	}

	site := siteSlug(req.SiteName)
	if site == "" {
		site = fmt.Sprintf("%s%04d", demoSitePrefix, rand.IntN(10000))
	}

	s.logger.Info("simulated deployment",
		zap.String("site", site),
		zap.Int("bytes", len(req.HTMLContent)))

	return &domain.DeployResponse{
		URL:       "https://" + site + ".netlify.app",
		SiteName:  site,
		Simulated: true,
	}, nil
}

// siteSlug lowercases name and keeps only characters valid in a hostname label.
func siteSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '_' || r == '.':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 63 {
		slug = strings.TrimRight(slug[:63], "-")
	}
	return slug
}
