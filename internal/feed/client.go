package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

// Code is one entry from the external codes endpoint.
type Code struct {
	Code      string
	IsExpired bool
	Rewards   string
}

// Client pulls the current code list for a game from the hoyo-codes API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type codesResponse struct {
	Codes []struct {
		Code    string `json:"code"`
		Status  string `json:"status"`
		Rewards string `json:"rewards"`
	} `json:"codes"`
}

// FetchCodes returns every code the feed currently knows for a game. The
// endpoint drops fields freely, so anything missing defaults to an active
// code; only an explicit non-OK status marks expiry.
func (c *Client) FetchCodes(ctx context.Context, game models.Game) ([]Code, error) {
	url := fmt.Sprintf("%s/codes?game=%s", c.BaseURL, game)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching codes for %s", game)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("codes endpoint returned %d for %s", resp.StatusCode, game)
	}

	var payload codesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decoding codes response")
	}

	out := make([]Code, 0, len(payload.Codes))
	for _, entry := range payload.Codes {
		code := strings.TrimSpace(entry.Code)
		if code == "" {
			continue
		}
		expired := entry.Status != "" && !strings.EqualFold(entry.Status, "OK")
		out = append(out, Code{Code: code, IsExpired: expired, Rewards: entry.Rewards})
	}
	return out, nil
}
