package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultTimeout applies when a request sets no Timeout of its own.
const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is echoed into the error.
const maxErrorBody = 512

// HTTPClient bounds each request by a context deadline only, so a
// RequestParam.Timeout may be longer than the default.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPClient() IClient {
	return &HTTPClient{
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
}

func (c *HTTPClient) DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error {
	if requestParam == nil {
		return errors.New("request param is nil")
	}

	timeout := requestParam.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := requestBody(requestParam.Body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, requestParam.Method, requestParam.RequestURI, body)
	if err != nil {
		return err
	}
	for k, v := range requestParam.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := respBody
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, string(msg))
	}

	if requestParam.Response == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, requestParam.Response); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func requestBody(body interface{}) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return bytes.NewBufferString(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
