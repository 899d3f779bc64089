// Package publish posts finished media through the platform's three-phase
// Graph protocol: create a media container, poll until processing finishes,
// then confirm publication.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stoicbot/config"
	"stoicbot/poll"
)

var (
	// ErrContainerCreation means the platform rejected the container request.
	ErrContainerCreation = errors.New("media container creation failed")
	// ErrMediaProcessing means the platform reported a terminal processing
	// failure for a container (ERROR or EXPIRED).
	ErrMediaProcessing = errors.New("media container processing failed")
	// ErrPublish means the final publish confirmation failed.
	ErrPublish = errors.New("publish confirmation failed")
)

// Client talks to the Graph-style publishing API for one account.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	ownerID     string
	accessToken string
	shareToFeed bool

	// Poll bounds container status checks. Tests override Sleep.
	Poll poll.Policy
}

// ClientConfig carries the account credentials and endpoint.
type ClientConfig struct {
	BaseURL     string
	OwnerID     string
	AccessToken string
	ShareToFeed bool
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		ownerID:     cfg.OwnerID,
		accessToken: cfg.AccessToken,
		shareToFeed: cfg.ShareToFeed,
		Poll: poll.Policy{
			MaxAttempts: config.PollMaxAttempts,
			Interval:    config.PollInterval,
		},
	}
}

// VideoPost describes one reel-style publication. AudioAssetID optionally
// attaches a platform audio track instead of the video's own sound.
type VideoPost struct {
	VideoURL     string
	CoverURL     string
	Caption      string
	AudioAssetID string
}

// CarouselPost describes a multi-image publication.
type CarouselPost struct {
	ImageURLs []string
	Caption   string
}

// PublishVideo runs the full three-phase protocol for a video and returns
// the published post ID.
func (c *Client) PublishVideo(ctx context.Context, post VideoPost) (string, error) {
	form := url.Values{}
	form.Set("media_type", "REELS")
	form.Set("video_url", post.VideoURL)
	form.Set("caption", post.Caption)
	form.Set("share_to_feed", fmt.Sprintf("%t", c.shareToFeed))
	if post.CoverURL != "" {
		form.Set("cover_url", post.CoverURL)
	}
	if post.AudioAssetID != "" {
		form.Set("audio_asset_id", post.AudioAssetID)
	}

	containerID, err := c.createContainer(ctx, form)
	if err != nil {
		return "", err
	}
	log.Printf("media container created: %s", containerID)

	if err := c.waitForContainer(ctx, containerID); err != nil {
		return "", err
	}
	return c.confirmPublish(ctx, containerID)
}

// PublishCarousel creates one child container per image, a parent carousel
// container referencing them, then runs the usual poll-and-confirm phases on
// the parent.
func (c *Client) PublishCarousel(ctx context.Context, post CarouselPost) (string, error) {
	children := make([]string, 0, len(post.ImageURLs))
	for i, imageURL := range post.ImageURLs {
		form := url.Values{}
		form.Set("image_url", imageURL)
		form.Set("is_carousel_item", "true")
		childID, err := c.createContainer(ctx, form)
		if err != nil {
			return "", fmt.Errorf("carousel item %d: %w", i+1, err)
		}
		children = append(children, childID)
	}

	form := url.Values{}
	form.Set("media_type", "CAROUSEL")
	form.Set("children", strings.Join(children, ","))
	form.Set("caption", post.Caption)
	containerID, err := c.createContainer(ctx, form)
	if err != nil {
		return "", err
	}
	log.Printf("carousel container created: %s (%d items)", containerID, len(children))

	if err := c.waitForContainer(ctx, containerID); err != nil {
		return "", err
	}
	return c.confirmPublish(ctx, containerID)
}

// AccountInfo identifies the publishing account.
type AccountInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// VerifyCredentials confirms the token can read the owning account.
func (c *Client) VerifyCredentials(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	path := fmt.Sprintf("/%s?fields=id,username", c.ownerID)
	if err := c.getJSON(ctx, path, &info); err != nil {
		return nil, fmt.Errorf("credential verification failed: %w", err)
	}
	return &info, nil
}

func (c *Client) createContainer(ctx context.Context, form url.Values) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/%s/media", c.ownerID)
	if err := c.postForm(ctx, path, form, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainerCreation, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: response carried no container id", ErrContainerCreation)
	}
	return result.ID, nil
}

// waitForContainer polls container status. Transport errors and 5xx
// responses are transient; an ERROR or EXPIRED status is terminal.
func (c *Client) waitForContainer(ctx context.Context, containerID string) error {
	return c.Poll.Run(ctx, func(attempt int) (poll.Decision, error) {
		var result struct {
			StatusCode string `json:"status_code"`
			Status     string `json:"status"`
		}
		path := fmt.Sprintf("/%s?fields=status_code,status", containerID)
		if err := c.getJSON(ctx, path, &result); err != nil {
			log.Printf("container status check %d failed: %v", attempt, err)
			return poll.Continue, err
		}

		switch result.StatusCode {
		case "FINISHED":
			return poll.Done, nil
		case "ERROR", "EXPIRED":
			return poll.Fatal, fmt.Errorf("%w: container %s is %s (%s)",
				ErrMediaProcessing, containerID, result.StatusCode, result.Status)
		default:
			return poll.Continue, nil
		}
	})
}

func (c *Client) confirmPublish(ctx context.Context, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)

	var result struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/%s/media_publish", c.ownerID)
	if err := c.postForm(ctx, path, form, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: response carried no post id", ErrPublish)
	}
	log.Printf("published post %s", result.ID)
	return result.ID, nil
}

// postForm sends a form-encoded POST and decodes the JSON response. The
// access token travels in the body, never the URL, so it stays out of logs.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, result interface{}) error {
	form.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, result)
}

func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	fullURL := c.baseURL + path + sep + "access_token=" + url.QueryEscape(c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, graphErrorMessage(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// graphErrorMessage extracts the platform error message when the body is a
// standard error envelope, otherwise returns the raw body.
func graphErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Sprintf("%s (code %d)", envelope.Error.Message, envelope.Error.Code)
	}
	return string(body)
}
