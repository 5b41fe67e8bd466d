package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// adminClient is a thin HTTP client against a running adminsrv.Server,
// mirroring how the teacher's cmd/cli subpackage calls out to its own
// running services rather than linking their internals directly.
type adminClient struct {
	baseURL string
	caller  string
	http    *http.Client
}

func clientFromCmd(cmd *cobra.Command) *adminClient {
	addr, _ := cmd.Flags().GetString("admin-addr")
	caller, _ := cmd.Flags().GetString("caller")
	return &adminClient{baseURL: addr, caller: caller, http: &http.Client{Timeout: 15 * time.Second}}
}

func (c *adminClient) do(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if c.caller != "" {
		req.Header.Set("X-Relay-Caller", c.caller)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// call performs the request and decodes a JSON response into out (if
// non-nil), surfacing any non-2xx status as an error carrying the server's
// {"error": "..."} body when present.
func (c *adminClient) call(method, path string, body any, out any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("admin server: %s", errBody.Error)
		}
		return fmt.Errorf("admin server: unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
