// Package github is a minimal client for the GitHub releases API: create
// and update a release, fetch one by tag, list tags. Transient failures are
// retried with exponential backoff; auth and validation failures are not.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	errs "github.com/cloudoki/donder-release/internal/errors"
	"github.com/cloudoki/donder-release/internal/models"
)

const (
	apiRoot        = "https://api.github.com"
	acceptHeader   = "application/vnd.github+json"
	userAgent      = "donder-release"
	attemptTimeout = 15 * time.Second
	maxRetries     = 4
	tagsPerPage    = 100
)

// Client talks to the releases API of one repository.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client

	// newBackOff builds the retry policy for one call. Swapped in tests to
	// avoid real waits.
	newBackOff func() backoff.BackOff
}

// NewClient creates a client for the given repository using token
// authentication.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("%s/repos/%s/%s", apiRoot, owner, repo),
		token:   token,
		httpc:   &http.Client{Timeout: attemptTimeout},
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
		},
	}
}

// CreateRelease creates a tag-backed release. A create-conflict on the tag
// is reported as a duplicate-release error so racing invocations can treat
// it as "already published".
func (c *Client) CreateRelease(ctx context.Context, rel models.RemoteRelease) (*models.RemoteRelease, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/releases", rel)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusCreated:
		return decodeRelease(body)
	case http.StatusUnprocessableEntity:
		if isAlreadyExists(body) {
			return nil, errs.DuplicateRelease(rel.TagName)
		}
		return nil, errs.Validation("the host rejected the release: " + apiMessage(body))
	default:
		return nil, errs.Validation(fmt.Sprintf("unexpected status %d creating release", status))
	}
}

// GetReleaseByTag fetches the release for a tag. A missing release returns
// (nil, nil).
func (c *Client) GetReleaseByTag(ctx context.Context, tag string) (*models.RemoteRelease, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/releases/tags/"+tag, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return decodeRelease(body)
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, errs.Validation(fmt.Sprintf("unexpected status %d fetching release for tag %s", status, tag))
	}
}

// UpdateRelease overwrites the fields of an existing release.
func (c *Client) UpdateRelease(ctx context.Context, rel models.RemoteRelease) (*models.RemoteRelease, error) {
	status, body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/releases/%d", rel.ID), rel)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, errs.Validation(fmt.Sprintf("unexpected status %d updating release %d", status, rel.ID))
	}
	return decodeRelease(body)
}

// ListTags returns all repository tags known to the host, in API order
// (most recently created first), walking every result page.
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	for page := 1; ; page++ {
		path := fmt.Sprintf("/tags?per_page=%d&page=%d", tagsPerPage, page)
		status, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, errs.Validation(fmt.Sprintf("unexpected status %d listing tags", status))
		}

		var raw []struct {
			Name   string `json:"name"`
			Commit struct {
				SHA string `json:"sha"`
			} `json:"commit"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, errs.Internal(err)
		}

		for _, t := range raw {
			tags = append(tags, models.Tag{Name: t.Name, Hash: t.Commit.SHA})
		}
		if len(raw) < tagsPerPage {
			return tags, nil
		}
	}
}

// do performs one API call with retries. Network errors and 5xx responses
// are retried until the backoff budget is spent; 401/403 fail immediately.
// Any other status is returned to the caller together with the body.
func (c *Client) do(ctx context.Context, method, path string, in interface{}) (int, []byte, error) {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return 0, nil, errs.Internal(err)
		}
	}

	var status int
	var body []byte

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(errs.Internal(err))
		}
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("Content-Type", acceptHeader)
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Authorization", "Bearer "+c.token)

		res, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		b, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}

		switch {
		case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
			return backoff.Permanent(errs.Authorization(
				"the host rejected the token: " + apiMessage(b)))
		case res.StatusCode >= 500:
			return fmt.Errorf("server error %d from %s %s", res.StatusCode, method, path)
		}

		status = res.StatusCode
		body = b
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(c.newBackOff(), ctx))
	if err != nil {
		if appErr, ok := asAppError(err); ok {
			return 0, nil, appErr
		}
		return 0, nil, errs.TransientNetwork(err, fmt.Sprintf("%s %s failed after retries", method, path))
	}
	return status, body, nil
}

func asAppError(err error) (*errs.AppError, bool) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func decodeRelease(body []byte) (*models.RemoteRelease, error) {
	var rel models.RemoteRelease
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, errs.Internal(err)
	}
	return &rel, nil
}

// apiError is the error envelope of the GitHub API.
type apiError struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Code     string `json:"code"`
		Field    string `json:"field"`
	} `json:"errors"`
}

func isAlreadyExists(body []byte) bool {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	for _, detail := range e.Errors {
		if detail.Code == "already_exists" {
			return true
		}
	}
	return false
}

func apiMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return string(body)
	}
	return e.Message
}
