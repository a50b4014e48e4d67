package usecase

import (
	"context"

	"recon-report/internal/domain"
	"recon-report/internal/export"
)

// DocumentRepository supplies normalized input documents.
// The usecase layer depends on this interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_interface.go -source=interface.go
type DocumentRepository interface {
	GetDocument(ctx context.Context, path string) (domain.Document, error)
}

// Matcher is the external matching service. It returns the raw result payload, which the
// session validates before use.
type Matcher interface {
	Match(ctx context.Context, req domain.MatchRequest) ([]byte, error)
}

// ArtifactSink receives a finished export. It is only called with complete artifacts.
type ArtifactSink interface {
	Deliver(ctx context.Context, artifact *export.Artifact) error
}
