package fetcher

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/viktsys/taifexbot/config"
	"github.com/viktsys/taifexbot/logger"
)

// Page is one fetched document, decoded to UTF-8.
type Page struct {
	URL         string
	ContentType string
	Encoding    string
	Raw         []byte
	Text        string
	FetchedAt   time.Time
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Client struct {
	http *resty.Client
	log  *logger.Logger
	now  func() time.Time
}

func New(cfg config.TaifexConfig, log *logger.Logger) *Client {
	client := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,text/csv,text/plain;q=0.9,*/*;q=0.8")

	return &Client{
		http: client,
		log:  log.With("component", "fetcher"),
		now:  time.Now,
	}
}

// Fetch issues a single GET. Retrying is left to the scheduler.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	start := c.now()
	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if res.IsError() {
		return nil, &StatusError{URL: url, StatusCode: res.StatusCode()}
	}

	body := res.Body()
	contentType := res.Header().Get("Content-Type")
	enc, name := detectEncoding(body, contentType)

	text, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", url, name, err)
	}

	c.log.Debugw("fetched page",
		"url", url,
		"status", res.StatusCode(),
		"bytes", len(body),
		"encoding", name,
		"took", c.now().Sub(start),
	)

	return &Page{
		URL:         url,
		ContentType: contentType,
		Encoding:    name,
		Raw:         body,
		Text:        string(text),
		FetchedAt:   start,
	}, nil
}

// detectEncoding trusts a BOM or a Content-Type charset. Otherwise valid
// UTF-8 wins, then a <meta> charset, and finally Big5, which older exchange
// pages use without declaring it.
func detectEncoding(body []byte, contentType string) (encoding.Encoding, string) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if certain {
		return enc, name
	}
	if utf8.Valid(body) {
		return unicode.UTF8, "utf-8"
	}
	if name != "windows-1252" {
		return enc, name
	}
	return traditionalchinese.Big5, "big5"
}
