package service

import (
	"context"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// ExportFilename is the attachment name of exported pages.
const ExportFilename = "exported_page.html"

// Export returns the page bytes for download.
func (s *Service) Export(ctx context.Context, req domain.ExportRequest) ([]byte, error) {
	if blank(req.HTMLContent) {
		return nil, domain.NewValidationError("htmlContent")
	}
	if err := s.admit(ctx, opExport, "", req.HTMLContent); err != nil {
		return nil, err
	}
	return []byte(req.HTMLContent), nil
}
