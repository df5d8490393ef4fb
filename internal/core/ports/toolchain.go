package ports

import (
	"context"

	"go.trai.ch/rocks/internal/core/domain"
)

// ToolchainDetector locates compilers, headers, libraries and tools on the host.
//
//go:generate go run go.uber.org/mock/mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks
type ToolchainDetector interface {
	// Detect returns the toolchain satisfying req, or
	// *domain.ExternalDependencyError naming the first missing piece.
	Detect(ctx context.Context, req domain.ToolchainRequirements) (*domain.Toolchain, error)
}
