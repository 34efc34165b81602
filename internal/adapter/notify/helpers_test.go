package notify

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// jsonDecodeBody captures a request body without consuming it.
func jsonDecodeBody(req *http.Request, v any) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return json.Unmarshal(body, v)
}
