// Package sync pushes draft quotes to the upstream quote service and pulls
// the authoritative copy back. The upstream API speaks JSON over REST and
// assigns 24-hex identifiers on first save.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"forwarding_portal_backend/internal/drafts/draftid"
	"forwarding_portal_backend/platform/apperr"
	"forwarding_portal_backend/platform/config"
)

// DraftDocument is the wire shape exchanged with the upstream quote API.
// Step payloads travel as raw JSON; this service does not reinterpret them.
type DraftDocument struct {
	ID          string           `json:"id,omitempty"`
	RequestID   string           `json:"requestId,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	Customer    json.RawMessage  `json:"customer,omitempty"`
	Shipment    json.RawMessage  `json:"shipment,omitempty"`
	Haulage     json.RawMessage  `json:"haulage,omitempty"`
	Seafreight  json.RawMessage  `json:"seafreight,omitempty"`
	Misc        json.RawMessage  `json:"misc,omitempty"`
	Options     []OptionDocument `json:"options,omitempty"`
}

// OptionDocument is the upstream representation of one priced option.
type OptionDocument struct {
	Description     string          `json:"description,omitempty"`
	MarginType      string          `json:"marginType,omitempty"`
	MarginValue     int64           `json:"marginValue"`
	Selections      json.RawMessage `json:"selections,omitempty"`
	GrandTotalCents int64           `json:"grandTotalCents"`
	IsPreferred     bool            `json:"isPreferred"`
	Status          string          `json:"status,omitempty"`
}

// Error is a typed sync failure carrying the upstream response detail.
type Error struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream sync failed (%s): %s", e.Code, e.Message)
}

// Adapter is the HTTP client for the upstream quote-drafts API.
type Adapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAdapter creates an upstream API client from configuration.
func NewAdapter(cfg config.UpstreamConfig) *Adapter {
	return &Adapter{
		baseURL: cfg.GetUpstreamBaseURL(),
		apiKey:  cfg.GetUpstreamAPIKey(),
		client:  &http.Client{Timeout: cfg.GetUpstreamTimeout()},
	}
}

// Save persists a draft upstream. The candidate id decides the verb: drafts
// without an upstream identity are POSTed, everything else is PUT to its
// resource. Returns the identifier the upstream assigned or confirmed.
func (a *Adapter) Save(ctx context.Context, candidateID string, doc DraftDocument) (string, error) {
	method := draftid.ResolveSaveMethod(candidateID)

	url := a.baseURL + "/quote-drafts"
	if method == draftid.MethodUpdate {
		url += "/" + candidateID
		doc.ID = candidateID
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode draft document: %w", err)
	}

	resp, err := a.do(ctx, string(method), url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var saved DraftDocument
	if err := json.Unmarshal(resp, &saved); err != nil {
		return "", &Error{Code: "bad_response", Message: "upstream returned malformed draft: " + err.Error()}
	}
	if saved.ID == "" {
		// Some upstream versions echo nothing on PUT; the id is unchanged.
		if method == draftid.MethodUpdate {
			return candidateID, nil
		}
		return "", &Error{Code: "missing_id", Message: "upstream did not assign an identifier"}
	}
	return saved.ID, nil
}

// Fetch retrieves the authoritative upstream copy of a draft.
func (a *Adapter) Fetch(ctx context.Context, remoteID string) (DraftDocument, error) {
	if !draftid.IsRemoteID(remoteID) {
		return DraftDocument{}, apperr.Validation("draft has no upstream identity to pull from")
	}

	resp, err := a.do(ctx, http.MethodGet, a.baseURL+"/quote-drafts/"+remoteID, nil)
	if err != nil {
		return DraftDocument{}, err
	}

	var doc DraftDocument
	if err := json.Unmarshal(resp, &doc); err != nil {
		return DraftDocument{}, &Error{Code: "bad_response", Message: "upstream returned malformed draft: " + err.Error()}
	}
	return doc, nil
}

func (a *Adapter) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &Error{Code: "unreachable", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Code: "read_failed", Message: err.Error(), StatusCode: resp.StatusCode}
	}

	if resp.StatusCode >= 400 {
		code := "upstream_error"
		switch resp.StatusCode {
		case http.StatusNotFound:
			code = "not_found"
		case http.StatusConflict:
			code = "conflict"
		case http.StatusUnauthorized, http.StatusForbidden:
			code = "unauthorized"
		}
		return nil, &Error{Code: code, Message: upstreamMessage(data), StatusCode: resp.StatusCode}
	}
	return data, nil
}

func upstreamMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "upstream request failed"
}
