// internal/metadata/nftstorage.go
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultUploadTimeout = 30 * time.Second

// NFTStorageUploader pins documents through the NFT.Storage upload API.
type NFTStorageUploader struct {
	endpoint string
	token    string
	gateway  string
	client   *http.Client
}

func NewNFTStorageUploader(endpoint, token, gateway string) *NFTStorageUploader {
	return &NFTStorageUploader{
		endpoint: endpoint,
		token:    token,
		gateway:  gateway,
		client:   &http.Client{Timeout: defaultUploadTimeout},
	}
}

type nftStorageResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends data and returns gateway + cid.
func (u *NFTStorageUploader) Upload(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed nftStorageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if !parsed.OK || parsed.Value.CID == "" {
		if parsed.Error != nil {
			return "", fmt.Errorf("upload rejected: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("upload response has no cid")
	}
	return u.gateway + parsed.Value.CID, nil
}
