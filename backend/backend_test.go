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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

const gdfIntentPath = "queryResult.intent.displayName"

func TestMatchIntentAccepted(t *testing.T) {
	response := `{"queryResult":{"intent":{"displayName":"Generic|BIT|0|Welcome|Gen"}}}`
	err := MatchIntent(response, gdfIntentPath, []string{"Other", "Generic|BIT|0|Welcome|Gen"})
	assert.Nil(t, err)
}

func TestMatchIntentWrongName(t *testing.T) {
	response := `{"queryResult":{"intent":{"displayName":"X"}}}`
	err := MatchIntent(response, gdfIntentPath, []string{"A", "B", "C"})
	require.NotNil(t, err)
	assert.Equal(t, errs.KindInvalidAssertion, err.Kind)
	assert.Equal(t, "Wrong intent name received. Expected one of: 'A,B,C', got: 'X'", err.Message)
	assert.Equal(t, response, err.RawResponse)
}

func TestMatchIntentMissingName(t *testing.T) {
	cases := map[string]string{
		"no intent":    `{"queryResult":{}}`,
		"empty name":   `{"queryResult":{"intent":{"displayName":""}}}`,
		"wrong type":   `{"queryResult":{"intent":{"displayName":42}}}`,
		"null payload": `null`,
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			err := MatchIntent(response, gdfIntentPath, []string{"A", "B", "C"})
			require.NotNil(t, err)
			assert.Equal(t, errs.KindInvalidAssertion, err.Kind)
			assert.Equal(t, "No intent name received. Expected: 'A,B,C'", err.Message)
			assert.Equal(t, response, err.RawResponse)
		})
	}
}

func TestCanonicalJSON(t *testing.T) {
	canonical, err := CanonicalJSON([]byte(`{"b":1,"a":{"d":[2,1],"c":true}}`))
	require.Nil(t, err)
	assert.Equal(t, "{\n  \"a\": {\n    \"c\": true,\n    \"d\": [\n      2,\n      1\n    ]\n  },\n  \"b\": 1\n}", canonical)

	// Same document, different key order and spacing: one canonical form.
	again, err := CanonicalJSON([]byte(`{ "a": {"c":true, "d":[2,1]}, "b": 1 }`))
	require.Nil(t, err)
	assert.Equal(t, canonical, again)
}

func TestCanonicalJSONParseFailure(t *testing.T) {
	_, err := CanonicalJSON([]byte("<html>bad gateway</html>"))
	require.NotNil(t, err)
	assert.Equal(t, errs.KindJSONParsing, err.Kind)
	assert.Equal(t, "<html>bad gateway</html>", err.RawResponse)
}

func TestNewHTTPOptionsDefaults(t *testing.T) {
	options := NewHTTPOptions()
	assert.Equal(t, DefaultTimeout, options.Timeout)

	client, err := options.BuildClient()
	require.Nil(t, err)
	assert.Equal(t, DefaultTimeout, client.Timeout)
	assert.Nil(t, client.Transport)
}

func TestBuildClientWithProxy(t *testing.T) {
	client, err := NewHTTPOptions(WithProxy("http://proxy.internal:3128")).BuildClient()
	require.Nil(t, err)
	require.NotNil(t, client.Transport)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.Proxy)

	req, _ := http.NewRequest(http.MethodGet, "https://dialogflow.googleapis.com/v2", nil)
	proxyURL, perr := transport.Proxy(req)
	require.NoError(t, perr)
	assert.Equal(t, "proxy.internal:3128", proxyURL.Host)
}

func TestBuildClientInvalidProxy(t *testing.T) {
	_, err := NewHTTPOptions(WithProxy("http://bad proxy")).BuildClient()
	require.NotNil(t, err)
	assert.Equal(t, errs.KindGeneric, err.Kind)
}

func TestBuildClientCustomClientWins(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	client, err := NewHTTPOptions(WithHTTPClient(custom), WithProxy("http://ignored:1")).BuildClient()
	require.Nil(t, err)
	assert.Same(t, custom, client)
}

func TestHTTPOptionsFromSuite(t *testing.T) {
	s := &suite.Suite{Config: map[string]string{
		ConfigHTTPProxy:   "http://proxy.internal:3128",
		ConfigHTTPTimeout: "5",
	}}

	opts, err := HTTPOptionsFromSuite(s)
	require.Nil(t, err)

	options := NewHTTPOptions(opts...)
	assert.Equal(t, 5*time.Second, options.Timeout)
	assert.Equal(t, "http://proxy.internal:3128", options.ProxyURL)
}

func TestHTTPOptionsFromSuiteBadTimeout(t *testing.T) {
	for _, raw := range []string{"zero", "0", "-3"} {
		s := &suite.Suite{Config: map[string]string{ConfigHTTPTimeout: raw}}
		_, err := HTTPOptionsFromSuite(s)
		require.NotNil(t, err, raw)
		assert.Equal(t, errs.KindGeneric, err.Kind)
	}
}
