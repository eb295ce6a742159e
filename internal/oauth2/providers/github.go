package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mrlokans/librarian/internal/oauth2"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	GitHubName       = "github"
	githubAPIBaseURL = "https://api.github.com"
)

// GitHubConfig carries the OAuth application credentials. AuthURL, TokenURL
// and APIBaseURL default to the public GitHub endpoints when empty.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// GitHubProvider implements sign-in with GitHub using the authorization code flow
type GitHubProvider struct {
	conf       *xoauth2.Config
	apiBaseURL string
}

func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	apiBaseURL := githubAPIBaseURL
	if cfg.APIBaseURL != "" {
		apiBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	}

	return &GitHubProvider{
		conf: &xoauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBaseURL: apiBaseURL,
	}
}

func (p *GitHubProvider) Name() string {
	return GitHubName
}

func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Profile, error) {
	if code == "" {
		return nil, oauth2.ErrMissingCode
	}

	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	client := p.conf.Client(ctx, token)

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: empty account id", oauth2.ErrProfileFetch)
	}

	profile := &oauth2.Profile{
		Provider: GitHubName,
		ID:       strconv.FormatInt(user.ID, 10),
		Login:    user.Login,
		Name:     user.Name,
		Email:    user.Email,
	}

	// The public profile email is optional and carries no verification flag.
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary {
				profile.Email = e.Email
				profile.EmailVerified = e.Verified
				break
			}
		}
	}

	return profile, nil
}

func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", oauth2.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", oauth2.ErrProfileFetch, path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}
