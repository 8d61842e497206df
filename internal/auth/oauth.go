package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the portion of the GitHub /user API response we care about.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// GitHubLink is what a finished connect flow hands back: who the user is on
// GitHub and the token that lets us read their activity later.
type GitHubLink struct {
	User        GitHubUser
	AccessToken string
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow used to link an existing account to GitHub.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. The logged-in user asks for a connect URL; we sign a state token bound
//     to their userID and build GitHub's authorization URL with it.
//  2. The user approves on GitHub.
//  3. GitHub redirects to our callback with a short-lived "code" and the state.
//  4. We verify the state, then exchange the code for an access token
//     server-to-server using the ClientSecret.
//  5. We call /user with that token to learn the GitHub login.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// callbackURL must match the "Authorization callback URL" of the OAuth App
// exactly, e.g. "http://localhost:8080/auth/github/callback".
//
// Only "read:user" is requested; activity views read public data.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		userURL: "https://api.github.com/user",
	}
}

// newGitHubProviderWithEndpoints points the provider at a fake server in tests.
func newGitHubProviderWithEndpoints(clientID, clientSecret, callbackURL, authURL, tokenURL, userURL string) *GitHubProvider {
	p := NewGitHubProvider(clientID, clientSecret, callbackURL)
	p.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	p.userURL = userURL
	return p
}

// AuthURL returns the URL to redirect the user to for authorization.
// state must come back unchanged on the callback.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token and looks up
// the GitHub login it belongs to.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubLink, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// config.Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user")
	}

	return &GitHubLink{User: ghUser, AccessToken: oauthToken.AccessToken}, nil
}
