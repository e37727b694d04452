package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested for Drive, Docs and Sheets access
var Scopes = []string{drive.DriveScope, docs.DocumentsScope, sheets.SpreadsheetsScope}

// Credentials describes where Google credentials live
type Credentials struct {
	File              string // service account key or OAuth client secret
	TokenFile         string // cached OAuth token, unused for service accounts
	UseServiceAccount bool
	Prompt            io.Reader // where the OAuth authorization code is read from
	Out               io.Writer
}

// NewHTTPClient returns an authorized HTTP client for the Google APIs
func NewHTTPClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	b, err := os.ReadFile(creds.File)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	if creds.UseServiceAccount {
		c, err := google.CredentialsFromJSON(ctx, b, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
		}
		return oauth2.NewClient(ctx, c.TokenSource), nil
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return getClient(ctx, config, creds)
}

// getClient retrieves a token, saves it, then returns the generated client
func getClient(ctx context.Context, config *oauth2.Config, creds Credentials) (*http.Client, error) {
	tokFile := creds.TokenFile
	if tokFile == "" {
		tokFile = "token.json"
	}

	tok, err := tokenFromFile(tokFile)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config, creds)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

// getTokenFromWeb requests a token from the web
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, creds Credentials) (*oauth2.Token, error) {
	in, out := creds.Prompt, creds.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode oauth token: %w", err)
	}
	return nil
}
