package ingestion_engine

import (
	"bytes"
	"context"
	"strings"

	"code.sajari.com/docconv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

type DocconvExtractor struct {
	useReadability bool
	log            zerolog.Logger
}

func NewDocconvExtractor(useReadability bool, log zerolog.Logger) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability, log: log}
}

// ExtractText uses docconv to extract text from the given bytes based on
// content type and writes the extracted text as line fragments to the
// returned channel.
func (e *DocconvExtractor) ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error) {
	out := make(chan string, 32)

	reader := bytes.NewReader(data)

	g.Go(func() error {
		defer close(out)

		res, err := docconv.Convert(reader, contentType, e.useReadability)
		if err != nil {
			e.log.Error().Err(err).Str("content_type", contentType).Msg("docconv extraction failed")
			return err
		}

		text := res.Body
		if text == "" {
			e.log.Warn().Str("content_type", contentType).Msg("docconv extracted empty text")
			return nil
		}

		lines := strings.Split(text, "\n")
		for _, line := range lines {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, nil
}
