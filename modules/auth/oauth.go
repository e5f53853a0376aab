package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// ErrUnknownProvider is returned for a provider name that is not configured.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// Profile is the provider-neutral identity a federated sign-in yields.
type Profile struct {
	Email string
	Name  string
	Image string
}

// OAuthProvider wraps one federated identity provider.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

// OAuthProviders maps provider names to configured providers.
type OAuthProviders map[string]*OAuthProvider

// Get returns the provider with the given name.
func (p OAuthProviders) Get(name string) (*OAuthProvider, error) {
	provider, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return provider, nil
}

// NewGitHubProvider configures GitHub as a federated identity provider.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com/user",
	}
}

// NewGoogleProvider configures Google as a federated identity provider.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// Name returns the provider name.
func (p *OAuthProvider) Name() string {
	return p.name
}

// AuthCodeURL returns the provider's consent page URL for the given state.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// FetchProfile exchanges the authorization code and retrieves the
// user's profile from the provider.
func (p *OAuthProvider) FetchProfile(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange failed: %w", err)
	}

	client := p.config.Client(ctx, token)

	var raw struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
		Picture   string `json:"picture"`
	}
	if err := getJSON(ctx, client, p.userInfoURL, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	profile := &Profile{
		Email: raw.Email,
		Name:  raw.Name,
		Image: raw.AvatarURL,
	}
	if profile.Image == "" {
		profile.Image = raw.Picture
	}
	if profile.Name == "" {
		profile.Name = raw.Login
	}

	// GitHub omits the email from /user when it is private.
	if profile.Email == "" && p.name == "github" {
		email, err := p.fetchGitHubPrimaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
		profile.Email = email
	}

	if profile.Email == "" {
		return nil, fmt.Errorf("provider %s returned no email address", p.name)
	}

	return profile, nil
}

func (p *OAuthProvider) fetchGitHubPrimaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", fmt.Errorf("failed to fetch github emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", errors.New("github account has no verified email")
}

func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, body)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
