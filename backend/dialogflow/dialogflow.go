//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package dialogflow implements the backend adapter for Google Dialogflow:
// service-account JWT minting, OAuth jwt-bearer exchange and detectIntent
// turn calls.
package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-dialogtest-go/backend"
	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

const (
	// ConfigCredentialsFile is the required suite config key.
	ConfigCredentialsFile = "credentials_file"

	tokenScope     = "https://www.googleapis.com/auth/cloud-platform"
	tokenAudience  = "https://www.googleapis.com/oauth2/v4/token"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	defaultBaseURL = "https://dialogflow.googleapis.com/v2"
	intentPath     = "queryResult.intent.displayName"
)

// serviceAccount is the credential blob referenced by credentials_file.
type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
	TokenURI    string `json:"token_uri"`
}

// Backend drives one Dialogflow conversation.
type Backend struct {
	client    *http.Client
	baseURL   string
	projectID string
	token     string
	convID    string
}

var _ backend.Backend = (*Backend)(nil)

type options struct {
	baseURL  string
	tokenURL string
	httpOpts []backend.HTTPOption
}

// Option configures the adapter.
type Option func(*options)

// WithBaseURL overrides the detectIntent endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithTokenURL overrides the OAuth token endpoint, mainly for tests.
func WithTokenURL(u string) Option {
	return func(o *options) {
		o.tokenURL = u
	}
}

// WithHTTPOption adds HTTP transport options.
func WithHTTPOption(opt backend.HTTPOption) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, opt)
	}
}

// New builds the adapter from the suite config: it reads the credentials
// file, signs the service-account JWT, exchanges it for a bearer token and
// mints the conversation UUID. Every test gets its own adapter.
func New(ctx context.Context, s *suite.Suite, opts ...Option) (*Backend, *errs.Error) {
	o := &options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(o)
	}

	credPath, err := s.ConfigValue(ConfigCredentialsFile)
	if err != nil {
		return nil, err
	}
	suiteOpts, err := backend.HTTPOptionsFromSuite(s)
	if err != nil {
		return nil, err
	}
	client, err := backend.NewHTTPOptions(append(suiteOpts, o.httpOpts...)...).BuildClient()
	if err != nil {
		return nil, err
	}

	account, err := loadServiceAccount(credPath)
	if err != nil {
		return nil, err
	}
	signed, err := signServiceAccountJWT(account, time.Now())
	if err != nil {
		return nil, err
	}

	tokenURL := o.tokenURL
	if tokenURL == "" {
		tokenURL = account.TokenURI
	}
	if tokenURL == "" {
		tokenURL = tokenAudience
	}
	token, err := exchangeToken(ctx, client, tokenURL, signed)
	if err != nil {
		return nil, err
	}

	return &Backend{
		client:    client,
		baseURL:   strings.TrimSuffix(o.baseURL, "/"),
		projectID: account.ProjectID,
		token:     token,
		convID:    uuid.New().String(),
	}, nil
}

func loadServiceAccount(path string) (*serviceAccount, *errs.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "cannot read credentials file "+path, err)
	}
	var account serviceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, errs.Wrap(errs.KindJSONParsing, "cannot parse credentials file "+path, err)
	}
	return &account, nil
}

// signServiceAccountJWT mints the one-hour RS256 claim set Google's token
// endpoint expects. PEM line breaks arrive escaped in some credential blobs
// and are normalized first.
func signServiceAccountJWT(account *serviceAccount, now time.Time) (string, *errs.Error) {
	pemKey := strings.ReplaceAll(account.PrivateKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return "", errs.Wrap(errs.KindJWTCreation, "cannot parse service account private key", err)
	}

	claims := jwt.MapClaims{
		"iss":   account.ClientEmail,
		"scope": tokenScope,
		"aud":   tokenAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", errs.Wrap(errs.KindJWTCreation, "cannot sign service account JWT", err)
	}
	return signed, nil
}

func exchangeToken(ctx context.Context, client *http.Client, tokenURL, assertion string) (string, *errs.Error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", errs.Wrap(errs.KindGDFTokenRetrieval, "cannot build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.KindHTTPInvocation, "token exchange call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.KindHTTPInvocation, "cannot read token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errs.New(errs.KindGDFTokenRetrieval, "token exchange failed").
			WithCode(strconv.Itoa(resp.StatusCode)).
			WithRawResponse(string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errs.Wrap(errs.KindGDFTokenRetrieval, "cannot parse token response", err).
			WithRawResponse(string(body))
	}
	if payload.AccessToken == "" {
		return "", errs.New(errs.KindGDFTokenRetrieval, "no access token in response").
			WithRawResponse(string(body))
	}
	return payload.AccessToken, nil
}

type detectIntentRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type queryInput struct {
	Text textInput `json:"text"`
}

type textInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

// Invoke performs one detectIntent call and returns the canonical response.
func (b *Backend) Invoke(ctx context.Context, utterance, lang string) (string, *errs.Error) {
	payload := detectIntentRequest{}
	payload.QueryInput.Text = textInput{Text: utterance, LanguageCode: lang}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errs.Wrap(errs.KindJSONSerDeser, "cannot serialize detectIntent request", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/agent/sessions/%s:detectIntent",
		b.baseURL, b.projectID, b.convID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(errs.KindGDFInvocation, "cannot build detectIntent request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.KindHTTPInvocation, "detectIntent call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.KindHTTPInvocation, "cannot read detectIntent response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errs.New(errs.KindGDFInvocation, "detectIntent returned status "+resp.Status).
			WithCode(strconv.Itoa(resp.StatusCode)).
			WithRawResponse(string(raw))
	}
	return backend.CanonicalJSON(raw)
}

// ConversationID returns the session UUID minted at construction.
func (b *Backend) ConversationID() string {
	return b.convID
}

// IntentPath locates the intent display name in detectIntent responses.
func (b *Backend) IntentPath() string {
	return intentPath
}
