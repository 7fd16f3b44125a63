package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

var ErrNotConfigured = errors.New("openfga is not configured")

// Checker performs authorization checks.
type Checker interface {
	Check(ctx context.Context, user, object, relation string) (bool, error)
}

// OpenFGAClient implements Checker against the OpenFGA HTTP API.
type OpenFGAClient struct {
	apiURL  string
	storeID string
	http    *http.Client
}

// New returns an OpenFGA checker, or AllowAll when no store is configured.
func New(cfg config.AuthzConfig, httpClient *http.Client) Checker {
	c, err := NewOpenFGA(cfg, httpClient)
	if err != nil {
		return AllowAll{}
	}
	return c
}

func NewOpenFGA(cfg config.AuthzConfig, httpClient *http.Client) (*OpenFGAClient, error) {
	if cfg.APIURL == "" || cfg.StoreID == "" {
		return nil, ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenFGAClient{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		storeID: cfg.StoreID,
		http:    httpClient,
	}, nil
}

type checkRequest struct {
	TupleKey tupleKey `json:"tuple_key"`
}

type tupleKey struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// Check calls POST {api}/stores/{store_id}/check. A definitive deny is
// (false, nil).
func (c *OpenFGAClient) Check(ctx context.Context, user, object, relation string) (bool, error) {
	var out struct {
		Allowed bool `json:"allowed"`
	}
	err := c.post(ctx, "check", checkRequest{TupleKey: tupleKey{User: user, Relation: relation, Object: object}}, &out)
	if err != nil {
		return false, err
	}
	return out.Allowed, nil
}

type writeRequest struct {
	Writes struct {
		TupleKeys []tupleKey `json:"tuple_keys"`
	} `json:"writes"`
}

// Write stores the relation tuple user -> relation -> object.
func (c *OpenFGAClient) Write(ctx context.Context, user, object, relation string) error {
	var req writeRequest
	req.Writes.TupleKeys = []tupleKey{{User: user, Relation: relation, Object: object}}
	return c.post(ctx, "write", req, nil)
}

func (c *OpenFGAClient) post(ctx context.Context, op string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/stores/%s/%s", c.apiURL, c.storeID, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openfga %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("openfga %s status %d", op, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode openfga %s: %w", op, err)
	}
	return nil
}

// AllowAll allows everything. Useful for local dev without OpenFGA.
type AllowAll struct{}

func (AllowAll) Check(context.Context, string, string, string) (bool, error) {
	return true, nil
}
