//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package cos uploads the JSON report to Tencent Cloud Object Storage so a
// CI run leaves a durable artifact.
//
// Authentication:
// The uploader requires COS credentials which can be provided via:
// - Environment variables: COS_SECRETID and COS_SECRETKEY (recommended)
// - Option functions: WithSecretID() and WithSecretKey()
//
// The bucket comes from the constructor argument or the COS_BUCKET_URL
// environment variable.
package cos

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/report"
)

const defaultTimeout = 60 * time.Second

// Uploader puts one JSON report object per run into a COS bucket. It
// implements report.Writer.
type Uploader struct {
	client *cos.Client
}

// NewUploader creates an uploader for the given bucket URL. An empty
// bucketURL falls back to the COS_BUCKET_URL environment variable.
func NewUploader(bucketURL string, opts ...Option) (*Uploader, *errs.Error) {
	options := &options{
		timeout:   defaultTimeout,
		secretID:  os.Getenv("COS_SECRETID"),
		secretKey: os.Getenv("COS_SECRETKEY"),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.client != nil {
		return &Uploader{client: options.client}, nil
	}

	if bucketURL == "" {
		bucketURL = os.Getenv("COS_BUCKET_URL")
	}
	if bucketURL == "" {
		return nil, errs.New(errs.KindGeneric, "COS_BUCKET_URL config value not found")
	}
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, errs.Wrap(errs.KindGeneric, "parse bucket url "+bucketURL, err)
	}
	b := &cos.BaseURL{BucketURL: u}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.timeout,
			Transport: &cos.AuthorizationTransport{
				SecretID:  options.secretID,
				SecretKey: options.secretKey,
			},
		}
	} else if options.timeout > 0 {
		httpClient.Timeout = options.timeout
	}

	return &Uploader{client: cos.NewClient(b, httpClient)}, nil
}

// ObjectKey returns the bucket key a run is stored under.
func ObjectKey(run *report.Run) string {
	name := strings.ReplaceAll(run.SuiteName, "/", "-")
	return fmt.Sprintf("dialogtest/%s/%s.json", name, run.RunID)
}

// Write implements report.Writer.
func (u *Uploader) Write(ctx context.Context, run *report.Run) error {
	data, encErr := report.EncodeTests(run)
	if encErr != nil {
		return encErr
	}
	key := ObjectKey(run)
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: "application/json",
		},
	}
	if _, err := u.client.Object.Put(ctx, key, bytes.NewReader(data), opt); err != nil {
		return fmt.Errorf("upload report object %s: %w", key, err)
	}
	return nil
}
