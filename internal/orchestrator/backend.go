package orchestrator

import (
	"context"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// Backend is the page API the machine drives. It is served in process by
// service.Service and remotely by the HTTP client.
type Backend interface {
	EnhancePrompt(ctx context.Context, req domain.EnhanceRequest) (*domain.EnhanceResponse, error)
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.CodeResponse, error)
	Modify(ctx context.Context, req domain.ModifyRequest) (*domain.CodeResponse, error)
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
	Deploy(ctx context.Context, req domain.DeployRequest) (*domain.DeployResponse, error)
}
