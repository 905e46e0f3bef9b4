// Package sepay queries the SePay user API for bank transactions. The budget
// agent only needs the accumulated balance per account.
package sepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

type Config struct {
	BaseURL  string        `split_words:"true" default:"https://my.sepay.vn/userapi"`
	APIToken string        `envconfig:"API_TOKEN" split_words:"true" required:"true"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

var _ contractx.BudgetAPI = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("sepay base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errors.New("sepay api token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   strings.TrimSpace(cfg.APIToken),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type transaction struct {
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	Accumulated string `json:"accumulated"`
}

type transactionList struct {
	Status       int           `json:"status"`
	Transactions []transaction `json:"transactions"`
}

// Balance returns the account's most recent accumulated balance. When the
// API omits it, the balance is reconstructed by summing ins minus outs.
func (c *Client) Balance(ctx context.Context, accountNumber string) (float64, error) {
	account := strings.TrimSpace(accountNumber)
	if account == "" {
		return 0, errors.New("sepay: account number is required")
	}

	q := url.Values{}
	q.Set("account_number", account)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transactions/list?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("sepay: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sepay: list transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("sepay: list returned status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var list transactionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return 0, fmt.Errorf("sepay: decode response: %w", err)
	}
	if list.Status != 200 {
		return 0, fmt.Errorf("sepay: api status=%d", list.Status)
	}
	if len(list.Transactions) == 0 {
		return 0, nil
	}

	latest := list.Transactions[0]
	if v, err := strconv.ParseFloat(strings.TrimSpace(latest.Accumulated), 64); err == nil && latest.Accumulated != "" {
		return v, nil
	}

	var total float64
	for _, tx := range list.Transactions {
		in, _ := strconv.ParseFloat(strings.TrimSpace(tx.AmountIn), 64)
		out, _ := strconv.ParseFloat(strings.TrimSpace(tx.AmountOut), 64)
		total += in - out
	}
	return total, nil
}
