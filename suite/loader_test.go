//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
)

func TestLoadDialogflowSuite(t *testing.T) {
	s, err := Load("testdata/dialogflow.yaml")
	require.Nil(t, err)

	assert.Equal(t, "Tracking dialogs", s.Name)
	assert.Equal(t, TypeDialogflow, s.Type)
	assert.Equal(t, "./credentials.json", s.Config["credentials_file"])
	require.Len(t, s.Tests, 2)

	welcome := s.Tests[0]
	assert.Equal(t, "Welcome intent", welcome.Name)
	assert.Contains(t, welcome.Description, "**welcome**")
	assert.Equal(t, "en", welcome.Lang)
	require.Len(t, welcome.Assertions, 1)

	turn := welcome.Assertions[0]
	assert.Equal(t, "hello", turn.UserSays)
	assert.Equal(t, StringOrList{"Generic|BIT|0|Welcome|Gen"}, turn.BotRespondsWith)
	require.Len(t, turn.ResponseChecks, 3)

	action := turn.ResponseChecks[0]
	assert.Equal(t, OperatorEquals, action.Operator)
	str, ok := action.Value.AsString()
	require.True(t, ok)
	assert.Equal(t, "input.welcome", str)

	params := turn.ResponseChecks[1]
	b, ok := params.Value.AsBool()
	require.True(t, ok)
	assert.True(t, b)

	length := turn.ResponseChecks[2]
	assert.Equal(t, OperatorLength, length.Operator)
	f, ok := length.Value.AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(1), f)

	tracking := s.Tests[1]
	assert.Equal(t, "en-US", tracking.Lang)
	assert.Equal(t, StringOrList{
		"Tracking|BIT|0|Prompt|Gen",
		"Tracking|BIT|0|TrackingNumber|Gen",
	}, tracking.Assertions[0].BotRespondsWith)
	assert.Empty(t, tracking.Assertions[0].ResponseChecks)

	notEquals := tracking.Assertions[1].ResponseChecks[1]
	assert.Equal(t, OperatorNotEquals, notEquals.Operator)
	f, ok = notEquals.Value.AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(0), f)
}

func TestLoadVAPSuite(t *testing.T) {
	s, err := Load("testdata/vap.yaml")
	require.Nil(t, err)

	assert.Equal(t, TypeVAP, s.Type)
	assert.Equal(t, "https://vap.example.com", s.Config["vap_url"])
	assert.Equal(t, "web", s.Config["vap_channel_id"])

	check := s.Tests[0].Assertions[0].ResponseChecks[1]
	assert.Equal(t, OperatorJSONEquals, check.Operator)
	str, ok := check.Value.AsString()
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"ctx/welcome","lifespanCount":1}`, str)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	require.NotNil(t, err)
	assert.Equal(t, errs.KindIO, err.Kind)
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("suite-spec: [unclosed"))
	require.NotNil(t, err)
	assert.Equal(t, errs.KindYamlParsing, err.Kind)
}

func TestParseValidationMessages(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing suite name",
			yaml: `
suite-spec:
  type: DialogFlow
tests:
  - name: t
    assertions:
      - userSays: hi
        botRespondsWith: X
`,
			want: "Suite name not specified",
		},
		{
			name: "missing suite type",
			yaml: `
suite-spec:
  name: s
tests:
  - name: t
    assertions:
      - userSays: hi
        botRespondsWith: X
`,
			want: "Suite type not specified",
		},
		{
			name: "unknown suite type",
			yaml: `
suite-spec:
  name: s
  type: Rasa
tests:
  - name: t
    assertions:
      - userSays: hi
        botRespondsWith: X
`,
			want: "Unknown suite type found: Rasa",
		},
		{
			name: "no tests",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
`,
			want: "No tests found in suite",
		},
		{
			name: "missing test name",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - assertions:
      - userSays: hi
        botRespondsWith: X
`,
			want: "Test name not specified",
		},
		{
			name: "missing assertions",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
`,
			want: "Test assertions missing for greeting",
		},
		{
			name: "missing userSays",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - botRespondsWith: X
`,
			want: "Test assertions missing userSays for greeting",
		},
		{
			name: "missing botRespondsWith",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - userSays: hi
`,
			want: "Test assertions missing botRespondsWith for greeting",
		},
		{
			name: "empty intent in list",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - userSays: hi
        botRespondsWith:
          - X
          - ""
`,
			want: "Test assertions missing botRespondsWith for greeting",
		},
		{
			name: "missing expression",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - userSays: hi
        botRespondsWith: X
        responseChecks:
          - operator: equals
            value: y
`,
			want: "Response check expression not specified for greeting",
		},
		{
			name: "unknown operator",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - userSays: hi
        botRespondsWith: X
        responseChecks:
          - expression: queryResult.action
            operator: matches
            value: y
`,
			want: "Unknown response check operator found: matches",
		},
		{
			name: "missing value",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - userSays: hi
        botRespondsWith: X
        responseChecks:
          - expression: queryResult.action
            operator: equals
`,
			want: "Response check value not specified for greeting",
		},
		{
			name: "bad language tag",
			yaml: `
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    lang: "not a tag"
    assertions:
      - userSays: hi
        botRespondsWith: X
`,
			want: "Unsupported language tag: not a tag",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.NotNil(t, err)
			assert.Equal(t, errs.KindYamlParsing, err.Kind)
			assert.Equal(t, tc.want, err.Message)
		})
	}
}

func TestParseQuotedNumberStaysString(t *testing.T) {
	s, err := Parse([]byte(`
suite-spec:
  name: s
  type: DialogFlow
tests:
  - name: greeting
    assertions:
      - userSays: hi
        botRespondsWith: X
        responseChecks:
          - expression: queryResult.outputContexts
            operator: length
            value: "4"
`))
	require.Nil(t, err)

	v := s.Tests[0].Assertions[0].ResponseChecks[0].Value
	assert.Equal(t, ValueString, v.Kind())
	str, _ := v.AsString()
	assert.Equal(t, "4", str)
}

func TestParseConfigLastKeyWins(t *testing.T) {
	s, err := Parse([]byte(`
suite-spec:
  name: s
  type: DialogFlow
  config:
    - credentials_file: first.json
    - credentials_file: second.json
tests:
  - name: greeting
    assertions:
      - userSays: hi
        botRespondsWith: X
`))
	require.Nil(t, err)
	assert.Equal(t, "second.json", s.Config["credentials_file"])
}
