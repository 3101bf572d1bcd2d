/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vc-test-generator is the fixture generator of the W3C Verifiable Credentials test suite.
//
// It prints exactly one line to stdout on success. On failure, stdout stays empty, the error
// with its stack trace goes to stderr and the exit code tells the kind of the failure:
// 1 for input errors, 2 for key and signature errors, 3 for conversion errors.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/vctestsuite/vc-test-generator/cmd/vc-test-generator/generatecmd"
	"github.com/vctestsuite/vc-test-generator/pkg/common/logutil"
	"github.com/vctestsuite/vc-test-generator/pkg/generator"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// stdout is reserved for the generated document
	log.Initialize(logutil.NewLogrusProvider(stderr))

	rootCmd := generatecmd.Cmd(stdout)
	rootCmd.Use = "vc-test-generator [flags] <input-file>"
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		fmt.Fprintf(stderr, "%+v\n", err)

		return int(generator.ExitCode(err))
	}

	return int(generator.Success)
}
