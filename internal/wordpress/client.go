package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

var ErrPostNotFound = errors.New("wordpress post not found")

// wpTimeLayout is the format of the *_gmt fields of the REST API.
const wpTimeLayout = "2006-01-02T15:04:05"

// RemoteError is a non-2xx answer other than 404.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("wordpress status %d: %s", e.StatusCode, e.Message)
}

type Credentials struct {
	SiteURL  string
	Username string
	Password string
}

type ClientConfig struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client reads post metadata from the WordPress REST API using application
// passwords.
type Client struct {
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Client{timeout: config.Timeout, httpClient: config.HTTPClient}
}

func (c *Client) GetPost(ctx context.Context, credentials Credentials, postID int64) (domain.PostMetadata, error) {
	endpoint, err := postEndpoint(credentials.SiteURL, postID)
	if err != nil {
		return domain.PostMetadata{}, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PostMetadata{}, fmt.Errorf("create wordpress request: %w", err)
	}
	request.SetBasicAuth(credentials.Username, credentials.Password)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return domain.PostMetadata{}, fmt.Errorf("wordpress transport error: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return domain.PostMetadata{}, fmt.Errorf("read wordpress body: %w", err)
	}

	if response.StatusCode == http.StatusNotFound {
		return domain.PostMetadata{}, ErrPostNotFound
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 200 {
			message = message[:200]
		}
		return domain.PostMetadata{}, &RemoteError{StatusCode: response.StatusCode, Message: message}
	}

	var raw wpPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.PostMetadata{}, fmt.Errorf("decode wordpress post: %w", err)
	}
	return raw.metadata(), nil
}

func postEndpoint(siteURL string, postID int64) (string, error) {
	base, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid wordpress site url %q", siteURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/wp-json/wp/v2/posts/" + strconv.FormatInt(postID, 10)
	base.RawQuery = ""
	return base.String(), nil
}

type wpPost struct {
	ID          int64  `json:"id"`
	DateGMT     string `json:"date_gmt"`
	ModifiedGMT string `json:"modified_gmt"`
	Status      string `json:"status"`
	Link        string `json:"link"`
	Title       struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

func (p wpPost) metadata() domain.PostMetadata {
	return domain.PostMetadata{
		ID:       p.ID,
		Title:    html.UnescapeString(strings.TrimSpace(p.Title.Rendered)),
		Status:   p.Status,
		Date:     parseWPTime(p.DateGMT),
		Modified: parseWPTime(p.ModifiedGMT),
		Link:     p.Link,
	}
}

func parseWPTime(value string) time.Time {
	parsed, err := time.ParseInLocation(wpTimeLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
