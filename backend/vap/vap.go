//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package vap implements the backend adapter for the DHL VAP gateway:
// local-strategy authentication and generic channel turn calls with
// response scrubbing.
package vap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-dialogtest-go/backend"
	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// Suite config keys of the VAP adapter.
const (
	ConfigURL          = "vap_url"
	ConfigAccessToken  = "vap_access_token"
	ConfigEmail        = "vap_svc_account_email"
	ConfigPassword     = "vap_svc_account_password"
	ConfigChannelID    = "vap_channel_id"
	ConfigCountry      = "vap_country"
	ConfigContextExtra = "vap_context_extra"
)

// EnvPassword is read when vap_svc_account_password is not configured.
const EnvPassword = "VAP_SVC_ACCOUNT_PASSWORD"

const (
	authPath    = "/vapapi/authentication/v1"
	channelPath = "/vapapi/channels/generic/v1"
	intentPath  = "dfResponse.queryResult.intent.displayName"

	scrubNote = "config removed for security reasons"
)

// Backend drives one conversation through the VAP generic channel.
type Backend struct {
	client       *http.Client
	baseURL      string
	staticToken  string
	bearer       string
	convID       string
	channelID    string
	country      string
	contextExtra map[string]any
}

var _ backend.Backend = (*Backend)(nil)

type options struct {
	httpOpts []backend.HTTPOption
}

// Option configures the adapter.
type Option func(*options)

// WithHTTPOption adds HTTP transport options.
func WithHTTPOption(opt backend.HTTPOption) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, opt)
	}
}

// New builds the adapter from the suite config and authenticates against
// the gateway; the returned bearer is used for every turn of the test.
func New(ctx context.Context, s *suite.Suite, opts ...Option) (*Backend, *errs.Error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	baseURL, err := s.ConfigValue(ConfigURL)
	if err != nil {
		return nil, err
	}
	staticToken, err := s.ConfigValue(ConfigAccessToken)
	if err != nil {
		return nil, err
	}
	email, err := s.ConfigValue(ConfigEmail)
	if err != nil {
		return nil, err
	}
	password := s.Config[ConfigPassword]
	if password == "" {
		password = os.Getenv(EnvPassword)
	}
	if password == "" {
		return nil, errs.New(errs.KindGeneric, ConfigPassword+" config value not found")
	}

	var contextExtra map[string]any
	if raw := s.Config[ConfigContextExtra]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &contextExtra); err != nil {
			return nil, errs.Wrap(errs.KindJSONParsing, "cannot parse vap_context_extra", err)
		}
	}

	suiteOpts, err := backend.HTTPOptionsFromSuite(s)
	if err != nil {
		return nil, err
	}
	client, err := backend.NewHTTPOptions(append(suiteOpts, o.httpOpts...)...).BuildClient()
	if err != nil {
		return nil, err
	}

	b := &Backend{
		client:       client,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		staticToken:  staticToken,
		convID:       uuid.New().String(),
		channelID:    s.Config[ConfigChannelID],
		country:      s.Config[ConfigCountry],
		contextExtra: contextExtra,
	}
	if err := b.authenticate(ctx, email, password); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) authenticate(ctx context.Context, email, password string) *errs.Error {
	payload, err := json.Marshal(map[string]string{
		"strategy": "local",
		"email":    email,
		"password": password,
	})
	if err != nil {
		return errs.Wrap(errs.KindJSONSerDeser, "cannot serialize authentication request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+authPath,
		bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(errs.KindGDFTokenRetrieval, "cannot build authentication request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindHTTPInvocation, "authentication call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.KindHTTPInvocation, "cannot read authentication response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.New(errs.KindGDFTokenRetrieval, "VAP authentication failed").
			WithCode(strconv.Itoa(resp.StatusCode)).
			WithRawResponse(string(body))
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return errs.Wrap(errs.KindGDFTokenRetrieval, "cannot parse authentication response", err).
			WithRawResponse(string(body))
	}
	if parsed.AccessToken == "" {
		return errs.New(errs.KindGDFTokenRetrieval, "no access token in authentication response").
			WithRawResponse(string(body))
	}
	b.bearer = parsed.AccessToken
	return nil
}

// Invoke performs one generic channel call and returns the canonical
// scrubbed response.
func (b *Backend) Invoke(ctx context.Context, utterance, lang string) (string, *errs.Error) {
	body := map[string]any{"text": utterance, "convId": b.convID}
	if b.channelID != "" {
		body["channelId"] = b.channelID
	}
	vaContext := map[string]any{"lang": lang}
	if b.country != "" {
		vaContext["country"] = b.country
	}
	for k, v := range b.contextExtra {
		vaContext[k] = v
	}
	payload, err := json.Marshal(map[string]any{
		"headers": map[string]string{
			"at":           b.staticToken,
			"content-type": "application/json",
		},
		"body":      body,
		"vaContext": vaContext,
	})
	if err != nil {
		return "", errs.Wrap(errs.KindJSONSerDeser, "cannot serialize channel request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+channelPath,
		bytes.NewReader(payload))
	if err != nil {
		return "", errs.Wrap(errs.KindGDFInvocation, "cannot build channel request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", b.bearer)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.KindHTTPInvocation, "channel call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.KindHTTPInvocation, "cannot read channel response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errs.New(errs.KindGDFInvocation, "channel call returned status "+resp.Status).
			WithCode(strconv.Itoa(resp.StatusCode)).
			WithRawResponse(string(raw))
	}
	return scrub(raw)
}

// scrub replaces vaContext.config with a fixed note so gateway secrets never
// reach reports, then re-serializes the body canonically.
func scrub(raw []byte) (string, *errs.Error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", errs.Wrap(errs.KindJSONParsing, "cannot parse channel response", err).
			WithRawResponse(string(raw))
	}
	vaContext, ok := decoded["vaContext"].(map[string]any)
	if !ok {
		vaContext = map[string]any{}
		decoded["vaContext"] = vaContext
	}
	vaContext["config"] = map[string]any{"note": scrubNote}

	pretty, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.KindJSONSerDeser, "cannot re-serialize channel response", err).
			WithRawResponse(string(raw))
	}
	return string(pretty), nil
}

// ConversationID returns the session UUID minted at construction.
func (b *Backend) ConversationID() string {
	return b.convID
}

// IntentPath locates the intent display name in channel responses.
func (b *Backend) IntentPath() string {
	return intentPath
}
