package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const tunnelsPath = "/intent/tunnels"

// RESTClient talks to the intent server REST API
type RESTClient struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewRESTClient creates a client for the intent server at baseURL (e.g. http://127.0.0.1:8080)
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())

	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Submit posts the intent and returns the id taken from the Location header
func (c *RESTClient) Submit(ctx context.Context, in Intent) (uuid.UUID, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tunnelsPath, bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, serviceError("submit", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debugf("Submitting intent %s", in)
	resp, err := c.client.Do(req)
	if err != nil {
		return uuid.Nil, serviceError("submit", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return uuid.Nil, serviceError("submit", unexpectedStatus(resp))
	}

	id, err := idFromLocation(resp.Header.Get("Location"))
	if err != nil {
		return uuid.Nil, serviceError("submit", err)
	}

	c.logger.Infof("Intent %s installed (%s)", id, in)
	return id, nil
}

// Withdraw deletes the intent. An intent the server no longer knows is
// considered withdrawn.
func (c *RESTClient) Withdraw(ctx context.Context, id uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+tunnelsPath+"/"+id.String(), nil)
	if err != nil {
		return serviceError("withdraw", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return serviceError("withdraw", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		c.logger.Infof("Intent %s withdrawn", id)
		return nil
	case http.StatusNotFound:
		c.logger.Warnf("Intent %s not found on intent server, treating as withdrawn", id)
		return nil
	default:
		return serviceError("withdraw", unexpectedStatus(resp))
	}
}

func idFromLocation(location string) (uuid.UUID, error) {
	if location == "" {
		return uuid.Nil, fmt.Errorf("missing Location header")
	}
	u, err := url.Parse(location)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid Location header %q: %w", location, err)
	}
	id, err := uuid.Parse(path.Base(u.Path))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid intent id in Location %q: %w", location, err)
	}
	return id, nil
}

func unexpectedStatus(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d (body: %s)", resp.StatusCode, strings.TrimSpace(string(msg)))
}
