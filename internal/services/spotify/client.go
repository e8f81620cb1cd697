package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

var trackPattern = regexp.MustCompile(`spotify\.com/track/([a-zA-Z0-9]+)`)

// Track is the subset of Spotify track metadata the resolver needs
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

// Artist returns the primary artist name
func (t *Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// SearchQuery renders the track as a "Artist - Title" lookup string
func (t *Track) SearchQuery() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s - %s", t.Artists[0].Name, t.Name)
}

// Thumbnail returns the album cover URL when present
func (t *Track) Thumbnail() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Client talks to the Spotify Web API with client-credentials auth
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Spotify API client. Credentials are validated lazily
// on the first request.
func NewClient(clientID, clientSecret string, log *logger.Logger) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify credentials not provided")
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       log,
	}, nil
}

// ParseTrackID extracts the track ID from a Spotify track URL
func ParseTrackID(rawURL string) (string, error) {
	if matches := trackPattern.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	return "", fmt.Errorf("unsupported spotify URL")
}

// GetTrack fetches track metadata by ID
func (c *Client) GetTrack(ctx context.Context, trackID string) (*Track, error) {
	body, err := c.get(ctx, "https://api.spotify.com/v1/tracks/"+trackID)
	if err != nil {
		return nil, err
	}

	var track Track
	if err := json.Unmarshal(body, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("spotify API error: %s - %s", resp.Status, string(body))
	}

	return io.ReadAll(resp.Body)
}

// token returns a valid access token, refreshing shortly before expiry
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.tokenExpiry.Add(-5 * time.Minute)) {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://accounts.spotify.com/api/token", strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("spotify auth failed: %s - %s", resp.Status, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	c.logger.Debug("Spotify access token refreshed")
	return c.accessToken, nil
}
