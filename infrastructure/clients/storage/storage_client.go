package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

// Client talks to the object-storage gateway that owns the actual media
// bytes. This service only tracks sessions and parts; the gateway does the
// storing.
type Client struct {
	http     *http.Client
	endpoint string
	bucket   string
	basePath string
}

func NewClient(endpoint, bucket, basePath string) repository.IMediaStorage {
	return &Client{
		http:     &http.Client{Timeout: 2 * time.Minute},
		endpoint: endpoint,
		bucket:   bucket,
		basePath: basePath,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage gateway request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage gateway returned status %d: %s", resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) InitMultipartUpload(ctx context.Context, fileName, path string, size int64, contentType string) (*model.UploadSession, error) {
	if path == "" {
		path = c.basePath
	}
	req := map[string]any{
		"bucket":      c.bucket,
		"fileName":    fileName,
		"path":        path,
		"size":        size,
		"contentType": contentType,
	}
	var res struct {
		FileID   string `json:"fileId"`
		UploadID string `json:"uploadId"`
	}
	if err := c.postJSON(ctx, "/upload/multipart/init", req, &res); err != nil {
		return nil, err
	}
	return &model.UploadSession{FileID: res.FileID, UploadID: res.UploadID}, nil
}

func (c *Client) UploadPart(ctx context.Context, session *model.UploadSession, partNumber int, blob []byte) (*model.UploadPart, error) {
	q := url.Values{}
	q.Set("fileId", session.FileID)
	q.Set("uploadId", session.UploadID)
	q.Set("partNumber", strconv.Itoa(partNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/upload/multipart/part?"+q.Encode(), bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	var res struct {
		ETag string `json:"etag"`
	}
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &model.UploadPart{PartNumber: partNumber, ETag: res.ETag}, nil
}

func (c *Client) CompleteUpload(ctx context.Context, session *model.UploadSession, parts []model.UploadPart) (string, error) {
	req := map[string]any{
		"fileId":   session.FileID,
		"uploadId": session.UploadID,
		"parts":    parts,
	}
	var res struct {
		Location string `json:"location"`
	}
	if err := c.postJSON(ctx, "/upload/multipart/complete", req, &res); err != nil {
		return "", err
	}
	return res.Location, nil
}
