package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type SpeechClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Language   string
	HTTPClient *http.Client
}

// SpeechClient calls a Google-style speech-to-text recognize endpoint.
type SpeechClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	language   string
	httpClient *http.Client
}

func NewSpeechClient(config SpeechClientConfig) *SpeechClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://speech.googleapis.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if strings.TrimSpace(config.Language) == "" {
		config.Language = "en-US"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &SpeechClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		language:   config.Language,
		httpClient: config.HTTPClient,
	}
}

func (c *SpeechClient) Available() bool {
	return c.apiKey != ""
}

// RecognizeResult is the decoded output of one recognize call.
type RecognizeResult struct {
	Text             string
	Duration         float64
	Language         string
	ParticipantCount int
	Confidence       float64
}

func (c *SpeechClient) Recognize(ctx context.Context, audio []byte) (RecognizeResult, error) {
	if !c.Available() {
		return RecognizeResult{}, errors.New("speech client unavailable: missing API key")
	}
	if len(audio) == 0 {
		return RecognizeResult{}, errors.New("empty audio content")
	}

	payload := map[string]any{
		"config": map[string]any{
			"languageCode":               c.language,
			"enableAutomaticPunctuation": true,
			"enableSpeakerDiarization":   true,
			"model":                      "latest_long",
		},
		"audio": map[string]any{
			"content": base64.StdEncoding.EncodeToString(audio),
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return RecognizeResult{}, fmt.Errorf("marshal recognize payload: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(
		timeoutCtx,
		http.MethodPost,
		c.baseURL+"/speech:recognize?key="+c.apiKey,
		bytes.NewReader(encoded),
	)
	if err != nil {
		return RecognizeResult{}, fmt.Errorf("create recognize request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return RecognizeResult{}, fmt.Errorf("speech timeout: %w", err)
		}
		return RecognizeResult{}, fmt.Errorf("speech transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return RecognizeResult{}, fmt.Errorf("read speech body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return RecognizeResult{}, fmt.Errorf("speech status %d: %s", httpResponse.StatusCode, message)
	}

	var raw recognizeResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return RecognizeResult{}, fmt.Errorf("decode speech response: %w", err)
	}

	return c.collectResult(raw)
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				SpeakerTag int    `json:"speakerTag"`
				EndTime    string `json:"endTime"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (c *SpeechClient) collectResult(raw recognizeResponse) (RecognizeResult, error) {
	parts := make([]string, 0, len(raw.Results))
	speakers := make(map[int]struct{})
	confidences := make([]float64, 0, len(raw.Results))
	lastEnd := 0.0

	for _, result := range raw.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		if text := strings.TrimSpace(best.Transcript); text != "" {
			parts = append(parts, text)
		}
		if best.Confidence > 0 {
			confidences = append(confidences, best.Confidence)
		}
		for _, word := range best.Words {
			if word.SpeakerTag > 0 {
				speakers[word.SpeakerTag] = struct{}{}
			}
			if seconds := parseAPIDuration(word.EndTime); seconds > lastEnd {
				lastEnd = seconds
			}
		}
	}

	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return RecognizeResult{}, errors.New("speech response without transcript")
	}

	participantCount := len(speakers)
	if participantCount == 0 {
		participantCount = 1
	}

	confidence := 0.0
	if len(confidences) > 0 {
		total := 0.0
		for _, value := range confidences {
			total += value
		}
		confidence = total / float64(len(confidences))
	}

	return RecognizeResult{
		Text:             text,
		Duration:         lastEnd,
		Language:         c.language,
		ParticipantCount: participantCount,
		Confidence:       confidence,
	}, nil
}

// parseAPIDuration reads protobuf JSON durations such as "271.500s".
func parseAPIDuration(value string) float64 {
	trimmed := strings.TrimSuffix(strings.TrimSpace(value), "s")
	if trimmed == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return seconds
}
