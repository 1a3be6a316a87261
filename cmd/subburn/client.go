package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// apiClient talks to a running daemon over its HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(bind string) *apiClient {
	return &apiClient{
		baseURL: "http://" + bind,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type statusResponse struct {
	Status string `json:"status"`
	Log    string `json:"log"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jobsResponse struct {
	Jobs []jobEntry `json:"jobs"`
}

type jobEntry struct {
	ID         string `json:"id"`
	SourceKind string `json:"source_kind"`
	Source     string `json:"source,omitempty"`
	TargetLang string `json:"target_lang"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func (c *apiClient) submitURL(url, targetLang string, fontSize int) (string, error) {
	body, err := json.Marshal(map[string]any{
		"url":         url,
		"target_lang": targetLang,
		"font_size":   fontSize,
	})
	if err != nil {
		return "", err
	}
	resp, err := c.http.Post(c.baseURL+"/api/start", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("contact daemon: %w", err)
	}
	return decodeSubmitResponse(resp)
}

func (c *apiClient) submitFile(path, targetLang string, fontSize int) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	_ = writer.WriteField("target_lang", targetLang)
	_ = writer.WriteField("font_size", strconv.Itoa(fontSize))
	if err := writer.Close(); err != nil {
		return "", err
	}

	resp, err := c.http.Post(c.baseURL+"/api/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("contact daemon: %w", err)
	}
	return decodeSubmitResponse(resp)
}

func decodeSubmitResponse(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var body struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("daemon rejected submission: %s", body.Error)
	}
	return body.ID, nil
}

func (c *apiClient) status(id string) (*statusResponse, error) {
	resp, err := c.http.Get(c.baseURL + "/api/status/" + id)
	if err != nil {
		return nil, fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon error: %s", body.Error)
	}
	return &body, nil
}

func (c *apiClient) downloadOutput(id, dest string) error {
	resp, err := c.http.Get(c.baseURL + "/api/output/" + id)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("output not ready (status %d)", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("save output: %w", err)
	}
	return file.Close()
}

func (c *apiClient) cancel(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/jobs/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("cancel rejected: %s", body.Error)
	}
	return nil
}

func (c *apiClient) jobs(limit int) ([]jobEntry, error) {
	resp, err := c.http.Get(c.baseURL + "/api/jobs?limit=" + strconv.Itoa(limit))
	if err != nil {
		return nil, fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon error (status %d)", resp.StatusCode)
	}
	var body jobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Jobs, nil
}
