// Command load runs a self-contained benchmark of the meetings API against
// an in-process server: local queue, fallback transcription, degraded
// analysis. It measures the HTTP surface and pipeline scheduling, not LLM
// latency.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/audioinsight/audioinsight-back/internal/analysis"
	httpserver "github.com/audioinsight/audioinsight-back/internal/http"
	"github.com/audioinsight/audioinsight-back/internal/http/handlers"
	"github.com/audioinsight/audioinsight-back/internal/queue"
	"github.com/audioinsight/audioinsight-back/internal/store"
	"github.com/audioinsight/audioinsight-back/internal/transcribe"
	"github.com/audioinsight/audioinsight-back/internal/worker"
)

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	Results        []scenarioResult `json:"results"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type benchmarkEnv struct {
	server *httptest.Server
	cancel context.CancelFunc
}

func main() {
	uploadsTotal := flag.Int("uploads-total", 120, "total audio upload requests")
	uploadsConcurrency := flag.Int("uploads-concurrency", 16, "concurrency for upload requests")
	demoTotal := flag.Int("demo-total", 200, "total demo analyze requests")
	demoConcurrency := flag.Int("demo-concurrency", 24, "concurrency for demo analyze requests")
	pollTotal := flag.Int("poll-total", 400, "total status poll requests")
	pollConcurrency := flag.Int("poll-concurrency", 32, "concurrency for status poll requests")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	flag.Parse()

	env, err := startBenchmarkEnvironment()
	if err != nil {
		log.Fatalf("failed to start local benchmark environment: %v", err)
	}
	defer env.cancel()
	defer env.server.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	uploadsScenario := runScenario("meeting_uploads", *uploadsTotal, *uploadsConcurrency, func(index int) error {
		filename := fmt.Sprintf("meeting_%d.wav", index)
		if index%3 == 0 {
			filename = fmt.Sprintf("standup_%d.wav", index)
		}
		_, err := uploadAudio(client, env.server.URL, filename)
		return err
	})

	var (
		demoIDMu sync.Mutex
		demoIDs  []string
	)
	demoScenario := runScenario("demo_analyze", *demoTotal, *demoConcurrency, func(_ int) error {
		meetingID, err := postDemoAnalyze(client, env.server.URL)
		if err != nil {
			return err
		}
		demoIDMu.Lock()
		demoIDs = append(demoIDs, meetingID)
		demoIDMu.Unlock()
		return nil
	})

	// Give the worker pool a moment so polls hit a mix of in-flight
	// progress and terminal results.
	time.Sleep(500 * time.Millisecond)

	pollScenario := runScenario("status_polls", *pollTotal, *pollConcurrency, func(index int) error {
		demoIDMu.Lock()
		if len(demoIDs) == 0 {
			demoIDMu.Unlock()
			return fmt.Errorf("no scheduled meetings to poll")
		}
		meetingID := demoIDs[index%len(demoIDs)]
		demoIDMu.Unlock()
		return getExpecting(client, fmt.Sprintf("%s/v1/meetings/%s", env.server.URL, meetingID), http.StatusOK)
	})

	catalogScenario := runScenario("demo_catalog", 100, 16, func(_ int) error {
		return getExpecting(client, env.server.URL+"/v1/demo-files", http.StatusOK)
	})

	results := []scenarioResult{uploadsScenario, demoScenario, pollScenario, catalogScenario}
	slo := map[string]bool{
		"upload_p95_le_1000ms": uploadsScenario.P95MS <= 1000,
		"poll_p95_le_200ms":    pollScenario.P95MS <= 200,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		Results:        results,
		SLOEvaluation:  slo,
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal benchmark report: %v", err)
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			log.Fatalf("failed to write output file: %v", err)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

func startBenchmarkEnvironment() (*benchmarkEnv, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(io.Discard, "", 0)

	resultsDir, err := os.MkdirTemp("", "audioinsight-load-results-")
	if err != nil {
		cancel()
		return nil, err
	}
	uploadsDir, err := os.MkdirTemp("", "audioinsight-load-uploads-")
	if err != nil {
		cancel()
		return nil, err
	}

	meetingStore, err := store.NewFileStore(resultsDir, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	localQueue := queue.NewLocalQueue(4096, 2, logger)
	gateway := transcribe.NewGateway(nil, logger)
	engine := analysis.NewEngine(analysis.EngineDependencies{Client: nil, Logger: logger})
	coordinator := analysis.NewCoordinator(engine, logger)

	api := handlers.NewAPI(handlers.APIDependencies{
		Store:      meetingStore,
		Producer:   localQueue,
		Inspector:  meetingStore,
		UploadsDir: uploadsDir,
		Logger:     logger,
	})
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      "",
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	processor := worker.NewProcessor(worker.ProcessorDependencies{
		Consumer:    localQueue,
		Store:       meetingStore,
		Transcriber: gateway,
		Analyzer:    coordinator,
		UploadsDir:  uploadsDir,
		Concurrency: 8,
		Logger:      logger,
	})
	go processor.Start(ctx)

	server := httptest.NewServer(router)
	return &benchmarkEnv{
		server: server,
		cancel: func() {
			cancel()
			os.RemoveAll(resultsDir)
			os.RemoveAll(uploadsDir)
		},
	}, nil
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{
					durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0,
				}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	return scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
}

func uploadAudio(client *http.Client, baseURL, filename string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write([]byte("synthetic audio payload for load testing")); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	request, err := http.NewRequest(http.MethodPost, baseURL+"/v1/meetings", body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := client.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected upload status %d: %s", response.StatusCode, string(raw))
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return decoded.ID, nil
}

func postDemoAnalyze(client *http.Client, baseURL string) (string, error) {
	response, err := client.Post(baseURL+"/v1/demo/standup/analyze", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected demo status %d: %s", response.StatusCode, string(raw))
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode demo response: %w", err)
	}
	return decoded.ID, nil
}

func getExpecting(client *http.Client, url string, expectedStatus int) error {
	response, err := client.Get(url)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
