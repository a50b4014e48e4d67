package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"recon-report/internal/export"
)

// FileSink writes artifacts into a directory. Files appear under their final name only once
// fully written.
type FileSink struct {
	Dir string
	log *logrus.Entry

	// Written holds the path of the last artifact delivered.
	Written string
}

func NewFileSink(dir string, log *logrus.Entry) *FileSink {
	return &FileSink{Dir: dir, log: log}
}

func (s *FileSink) Deliver(ctx context.Context, artifact *export.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}
	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close artifact: %w", err)
	}

	dest := filepath.Join(s.Dir, artifact.Filename)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not move artifact into place: %w", err)
	}
	s.Written = dest

	if s.log != nil {
		s.log.WithFields(logrus.Fields{"path": dest, "bytes": len(artifact.Data)}).Info("artifact written")
	}
	return nil
}
