//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package cli

import (
	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-dialogtest-go/log"
)

// NewRootCmd creates the root command of the dialogtest CLI.
func NewRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "dialogtest",
		Short: "Integration test runner for conversational NLP backends",
		Long: `dialogtest runs declarative YAML test suites against conversational NLP
backends (Google Dialogflow or the DHL VAP gateway), asserting on the
matched intents and on JMESPath checks against the raw responses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			log.SetLevel(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", log.LevelInfo,
		"Log level: debug, info, warn or error")

	rootCmd.AddCommand(NewRunCmd())

	return rootCmd
}
