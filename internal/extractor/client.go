// Package extractor talks to the face detection/embedding server.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/phantomlab/facetriage/internal/extraction"
	"github.com/phantomlab/facetriage/internal/model"
)

const defaultBaseURL = "http://localhost:8000"

// Client computes face detections and embeddings using the face server.
// The server keeps per-connection model state, so a Client is not shared
// across concurrent callers; each extraction worker gets its own via Factory.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ extraction.Extractor = (*Client)(nil)

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Factory returns an extraction.Factory creating one Client per worker.
func Factory(baseURL string) extraction.Factory {
	return func() (extraction.Extractor, error) {
		return NewClient(baseURL), nil
	}
}

// faceDetection represents a single detected face in the server response
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Extract detects faces and computes their embeddings. Zero faces is a
// valid result, not an error.
func (c *Client) Extract(ctx context.Context, image []byte) ([]extraction.Detection, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", image)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]extraction.Detection, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", f.FaceIndex)
		}
		box, err := rectFromBBox(f.BBox)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", f.FaceIndex, err)
		}
		detections = append(detections, extraction.Detection{
			Box:        box,
			Confidence: f.DetScore,
			Embedding:  f.Embedding,
		})
	}
	return detections, nil
}

// rectFromBBox converts a [x1, y1, x2, y2] box to pixel Rect coordinates.
func rectFromBBox(bbox []float64) (model.Rect, error) {
	if len(bbox) != 4 {
		return model.Rect{}, fmt.Errorf("expected 4 bbox coordinates, got %d", len(bbox))
	}
	x := int(math.Round(bbox[0]))
	y := int(math.Round(bbox[1]))
	return model.Rect{
		X:      x,
		Y:      y,
		Width:  int(math.Round(bbox[2])) - x,
		Height: int(math.Round(bbox[3])) - y,
	}, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// BMP: 42 4D
	if data[0] == 0x42 && data[1] == 0x4D {
		return "image/bmp"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
