package transcribe

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/audioinsight/audioinsight-back/internal/domain"
)

// Recognizer is the speech capability the gateway wraps.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (RecognizeResult, error)
	Available() bool
}

// Gateway turns fallible speech recognition into a total operation: any
// failure degrades to a deterministic canned transcript so the pipeline
// never stalls on its least controllable stage.
type Gateway struct {
	client Recognizer
	logger *log.Logger
}

func NewGateway(client Recognizer, logger *log.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

func (g *Gateway) Transcribe(ctx context.Context, audioPath, filename string) domain.Transcript {
	if g.client == nil || !g.client.Available() {
		g.logf("speech client unavailable, using fallback transcript for %s", filename)
		return FallbackTranscript(filename)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		g.logf("read audio %s failed: %v", audioPath, err)
		return FallbackTranscript(filename)
	}

	result, err := g.client.Recognize(ctx, audio)
	if err != nil {
		g.logf("recognize failed for %s: %v", filename, err)
		return FallbackTranscript(filename)
	}
	if strings.TrimSpace(result.Text) == "" {
		g.logf("empty transcript for %s, using fallback", filename)
		return FallbackTranscript(filename)
	}

	duration := result.Duration
	if duration <= 0 {
		duration = 300
	}

	return domain.Transcript{
		Text:             result.Text,
		Duration:         duration,
		Language:         result.Language,
		ParticipantCount: result.ParticipantCount,
		Confidence:       result.Confidence,
	}
}

func (g *Gateway) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf("transcribe: "+format, args...)
	}
}
