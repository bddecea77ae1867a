// Package vision wraps the external plate-recognition API. The service
// treats it as an opaque function from image bytes to a plate string: any
// failure — network, auth, no plate in frame — is a silent "none", never
// an error and never retried.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client calls the plate-reader endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	region     string
	log        zerolog.Logger
}

// NewClient builds a client for the given plate-reader endpoint.
func NewClient(url, token, region string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		token:      token,
		region:     region,
		log:        log,
	}
}

type readerResponse struct {
	Results []struct {
		Plate string `json:"plate"`
	} `json:"results"`
}

// Recognize submits an image and returns the best plate candidate,
// upper-cased. ok is false when nothing was recognized for any reason.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, bool) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if c.region != "" {
		if err := w.WriteField("regions", c.region); err != nil {
			c.log.Warn().Err(err).Msg("vision request build failed")
			return "", false
		}
	}
	part, err := w.CreateFormFile("upload", "frame.jpg")
	if err != nil {
		c.log.Warn().Err(err).Msg("vision request build failed")
		return "", false
	}
	if _, err := part.Write(image); err != nil {
		c.log.Warn().Err(err).Msg("vision request build failed")
		return "", false
	}
	if err := w.Close(); err != nil {
		c.log.Warn().Err(err).Msg("vision request build failed")
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		c.log.Warn().Err(err).Msg("vision request build failed")
		return "", false
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("vision service unreachable")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Msg("vision service rejected request")
		return "", false
	}

	var parsed readerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		c.log.Warn().Err(err).Msg("vision response unreadable")
		return "", false
	}
	if len(parsed.Results) == 0 || parsed.Results[0].Plate == "" {
		return "", false
	}
	return strings.ToUpper(parsed.Results[0].Plate), true
}
