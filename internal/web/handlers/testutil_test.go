package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/extraction"
	"github.com/phantomlab/facetriage/internal/model"
	"github.com/phantomlab/facetriage/internal/workspace"
)

// echoExtractor decodes the submitted bytes as a JSON detection list, so
// tests control exactly what each uploaded "image" contains.
type echoExtractor struct{}

func (echoExtractor) Extract(_ context.Context, data []byte) ([]extraction.Detection, error) {
	var detections []extraction.Detection
	if err := json.Unmarshal(data, &detections); err != nil {
		return nil, errors.New("undecodable image")
	}
	return detections, nil
}

func detectionsPayload(t *testing.T, embeddings ...[]float32) []byte {
	t.Helper()
	var detections []extraction.Detection
	for _, e := range embeddings {
		detections = append(detections, extraction.Detection{
			Box:        model.Rect{X: 1, Y: 1, Width: 10, Height: 10},
			Confidence: 0.9,
			Embedding:  e,
		})
	}
	data, err := json.Marshal(detections)
	if err != nil {
		t.Fatalf("failed to marshal detections: %v", err)
	}
	return data
}

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	svc := extraction.NewService(
		func() (extraction.Extractor, error) { return echoExtractor{}, nil },
		extraction.Options{MaxWorkers: 2, IdleTimeout: time.Second},
	)
	ws := workspace.New(model.NewProject(), svc, nil)
	t.Cleanup(ws.Stop)
	return ws
}

// addProcessedImage adds an image through the workspace and waits until its
// faces have been extracted.
func addProcessedImage(t *testing.T, ws *workspace.Workspace, path string, embeddings ...[]float32) *model.Image {
	t.Helper()
	img, err := ws.AddImage(path, detectionsPayload(t, embeddings...))
	if err != nil {
		t.Fatalf("failed to add image: %v", err)
	}
	waitProcessed(t, ws, img.ID)
	return img
}

func waitProcessed(t *testing.T, ws *workspace.Workspace, imageID uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		processed := false
		err := ws.View(func(p *model.Project) {
			if img, ok := p.Image(imageID); ok {
				processed = img.Processed()
			}
		})
		if err != nil {
			t.Fatalf("workspace closed while waiting: %v", err)
		}
		if processed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for image %s to be processed", imageID)
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartUpload builds a multipart request with one file part per payload.
func multipartUpload(t *testing.T, path string, payloads map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range payloads {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
