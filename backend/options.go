//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package backend

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// DefaultTimeout bounds every turn and token call unless overridden.
const DefaultTimeout = 30 * time.Second

// Suite config keys shared by both adapters.
const (
	ConfigHTTPProxy   = "http_proxy"
	ConfigHTTPTimeout = "http_timeout_seconds"
)

// HTTPOptions configures the transport shared by the adapters.
type HTTPOptions struct {
	// Client replaces the built client entirely when set.
	Client *http.Client
	// Timeout is the per-request timeout of the built client.
	Timeout time.Duration
	// ProxyURL routes the built client through an HTTP proxy.
	ProxyURL string
}

// HTTPOption configures HTTPOptions.
type HTTPOption func(*HTTPOptions)

// NewHTTPOptions applies opts over the defaults.
func NewHTTPOptions(opts ...HTTPOption) *HTTPOptions {
	options := &HTTPOptions{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithHTTPClient replaces the built HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(o *HTTPOptions) {
		o.Client = client
	}
}

// WithTimeout sets the per-request timeout of the built client.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(o *HTTPOptions) {
		o.Timeout = timeout
	}
}

// WithProxy routes the built client through the given HTTP proxy URL.
func WithProxy(proxyURL string) HTTPOption {
	return func(o *HTTPOptions) {
		o.ProxyURL = proxyURL
	}
}

// HTTPOptionsFromSuite translates the shared suite config keys into options.
func HTTPOptionsFromSuite(s *suite.Suite) ([]HTTPOption, *errs.Error) {
	var opts []HTTPOption
	if proxy := s.Config[ConfigHTTPProxy]; proxy != "" {
		opts = append(opts, WithProxy(proxy))
	}
	if raw := s.Config[ConfigHTTPTimeout]; raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, errs.New(errs.KindGeneric, "invalid http_timeout_seconds config value: "+raw)
		}
		opts = append(opts, WithTimeout(time.Duration(seconds)*time.Second))
	}
	return opts, nil
}

// BuildClient returns the HTTP client described by the options.
func (o *HTTPOptions) BuildClient() (*http.Client, *errs.Error) {
	if o.Client != nil {
		return o.Client, nil
	}
	client := &http.Client{Timeout: o.Timeout}
	if o.ProxyURL != "" {
		proxy, err := url.Parse(o.ProxyURL)
		if err != nil {
			return nil, errs.Wrap(errs.KindGeneric, "invalid http_proxy config value: "+o.ProxyURL, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}
	return client, nil
}
