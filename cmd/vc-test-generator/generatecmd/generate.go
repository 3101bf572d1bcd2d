/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package generatecmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/ld"
	"github.com/vctestsuite/vc-test-generator/pkg/generator"
)

const (
	// jwt key blob flag.
	jwtFlagName  = "jwt"
	jwtEnvKey    = "VCGEN_JWT"
	jwtFlagUsage = "Base64 encoded JSON object with the RSA private key JWK in rs256PrivateKeyJwk." +
		" Switches to JWT mode. Alternatively, this can be set with the following environment variable: " + jwtEnvKey

	// jwt audience flag.
	jwtAudFlagName  = "jwt-aud"
	jwtAudEnvKey    = "VCGEN_JWT_AUD"
	jwtAudFlagUsage = "Audience put into aud claim of credential and presentation JWTs." +
		" Alternatively, this can be set with the following environment variable: " + jwtAudEnvKey

	// jwt no jws flag.
	jwtNoJWSFlagName  = "jwt-no-jws"
	jwtNoJWSEnvKey    = "VCGEN_JWT_NO_JWS"
	jwtNoJWSFlagUsage = "Print the JWT claims of the credential as JSON instead of signing them." +
		" Alternatively, this can be set with the following environment variable: " + jwtNoJWSEnvKey

	// jwt presentation flag.
	jwtPresentationFlagName  = "jwt-presentation"
	jwtPresentationEnvKey    = "VCGEN_JWT_PRESENTATION"
	jwtPresentationFlagUsage = "Wrap the signed JWT credential into a signed JWT presentation." +
		" Alternatively, this can be set with the following environment variable: " + jwtPresentationEnvKey

	// jwt decode flag.
	jwtDecodeFlagName  = "jwt-decode"
	jwtDecodeEnvKey    = "VCGEN_JWT_DECODE"
	jwtDecodeFlagUsage = "The input is a JWT credential: verify its signature and print the credential as JSON." +
		" Alternatively, this can be set with the following environment variable: " + jwtDecodeEnvKey

	// presentation flag.
	presentationFlagName  = "presentation"
	presentationEnvKey    = "VCGEN_PRESENTATION"
	presentationFlagUsage = "Without JWT key, the input is a presentation instead of a credential." +
		" Alternatively, this can be set with the following environment variable: " + presentationEnvKey

	// jsonld validation flag.
	jsonldValidationFlagName  = "jsonld-validation"
	jsonldValidationEnvKey    = "VCGEN_JSONLD_VALIDATION"
	jsonldValidationFlagUsage = "Validate credentials by JSON-LD compaction in addition to JSON schema." +
		" Alternatively, this can be set with the following environment variable: " + jsonldValidationEnvKey

	// jsonld contexts flag.
	jsonldContextFlagName  = "jsonld-context"
	jsonldContextEnvKey    = "VCGEN_JSONLD_CONTEXTS"
	jsonldContextFlagUsage = "JSON-LD context preloaded from a local file, given as <url>=<path>." +
		" Repeat or use commas for several contexts. Contexts which are not preloaded are fetched over HTTP." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " +
		jsonldContextEnvKey

	// jsonld external contexts flag.
	jsonldExternalContextFlagName  = "jsonld-external-context"
	jsonldExternalContextEnvKey    = "VCGEN_JSONLD_EXTERNAL_CONTEXTS"
	jsonldExternalContextFlagUsage = "Extra context URL appended to the @context of credentials and presentations" +
		" before JSON-LD validation. Repeat or use commas for several contexts." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " +
		jsonldExternalContextEnvKey

	// jsonld cache size flag.
	jsonldCacheSizeFlagName  = "jsonld-cache-size"
	jsonldCacheSizeEnvKey    = "VCGEN_JSONLD_CACHE_SIZE"
	jsonldCacheSizeFlagUsage = "Number of remote JSON-LD contexts kept in the cache during JSON-LD validation." +
		" Alternatively, this can be set with the following environment variable: " + jsonldCacheSizeEnvKey

	// strict validation flag.
	strictValidationFlagName  = "strict-validation"
	strictValidationEnvKey    = "VCGEN_STRICT_VALIDATION"
	strictValidationFlagUsage = "Reject fields which are not defined by the JSON schema or, with JSON-LD validation," +
		" by the contexts. Alternatively, this can be set with the following environment variable: " +
		strictValidationEnvKey

	// base context only flag.
	baseContextOnlyFlagName  = "base-context-only"
	baseContextOnlyEnvKey    = "VCGEN_BASE_CONTEXT_ONLY"
	baseContextOnlyFlagUsage = "Accept only credentials which use the base context and the VerifiableCredential" +
		" type. Alternatively, this can be set with the following environment variable: " + baseContextOnlyEnvKey

	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "VCGEN_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [CRITICAL] [ERROR] [WARNING] [INFO] [DEBUG]. Defaults to WARNING if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	defaultLogLevel = "WARNING"

	remoteContextTimeout = 30 * time.Second
)

var logger = log.New("vc-test-generator/cmd")

type generateParameters struct {
	opts            *generator.Options
	jsonldContexts  []string
	jsonldCacheSize int
	logLevel        string
}

// Cmd returns the Cobra generate command. The generated document is written to out.
func Cmd(out io.Writer) *cobra.Command {
	generateCmd := createGenerateCmd(out)

	createFlags(generateCmd)

	return generateCmd
}

func createGenerateCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [flags] <input-file>",
		Short: "Generate a VC test suite fixture",
		Long: `Convert a Verifiable Credential into canonical JSON or an RS256 signed JWT, optionally wrapped` +
			` into a JWT Verifiable Presentation, or decode a JWT Verifiable Credential back into JSON`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return generator.NewInputError(errors.Wrap(err, "expected the input file path"))
			}

			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getParameters(cmd)
			if err != nil {
				return err
			}

			if err = setLogLevel(parameters.logLevel); err != nil {
				return err
			}

			input, err := readInput(args[0])
			if err != nil {
				return err
			}

			if parameters.opts.JSONLDValidation {
				parameters.opts.DocumentLoader, err = createDocumentLoader(parameters.jsonldContexts,
					parameters.jsonldCacheSize)
				if err != nil {
					return err
				}
			}

			return generate(out, parameters.opts, input)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return generator.NewInputError(err)
	})

	return cmd
}

func createFlags(generateCmd *cobra.Command) {
	// jwt key blob
	generateCmd.Flags().StringP(jwtFlagName, "", "", jwtFlagUsage)

	// jwt audience
	generateCmd.Flags().StringP(jwtAudFlagName, "", "", jwtAudFlagUsage)

	// jwt output modes
	generateCmd.Flags().BoolP(jwtNoJWSFlagName, "", false, jwtNoJWSFlagUsage)
	generateCmd.Flags().BoolP(jwtPresentationFlagName, "", false, jwtPresentationFlagUsage)
	generateCmd.Flags().BoolP(jwtDecodeFlagName, "", false, jwtDecodeFlagUsage)

	// plain presentation
	generateCmd.Flags().BoolP(presentationFlagName, "", false, presentationFlagUsage)

	// JSON-LD
	generateCmd.Flags().BoolP(jsonldValidationFlagName, "", false, jsonldValidationFlagUsage)
	generateCmd.Flags().StringSliceP(jsonldContextFlagName, "", []string{}, jsonldContextFlagUsage)
	generateCmd.Flags().StringSliceP(jsonldExternalContextFlagName, "", []string{}, jsonldExternalContextFlagUsage)
	generateCmd.Flags().IntP(jsonldCacheSizeFlagName, "", 0, jsonldCacheSizeFlagUsage)

	// validation
	generateCmd.Flags().BoolP(strictValidationFlagName, "", false, strictValidationFlagUsage)
	generateCmd.Flags().BoolP(baseContextOnlyFlagName, "", false, baseContextOnlyFlagUsage)

	// log level
	generateCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
}

//nolint:funlen,gocyclo
func getParameters(cmd *cobra.Command) (*generateParameters, error) {
	keyBlob, err := getUserSetVar(cmd, jwtFlagName, jwtEnvKey)
	if err != nil {
		return nil, err
	}

	_, jwtEnvSet := os.LookupEnv(jwtEnvKey)
	jwtMode := cmd.Flags().Changed(jwtFlagName) || jwtEnvSet

	audience, err := getUserSetVar(cmd, jwtAudFlagName, jwtAudEnvKey)
	if err != nil {
		return nil, err
	}

	noJWS, err := getUserSetBool(cmd, jwtNoJWSFlagName, jwtNoJWSEnvKey)
	if err != nil {
		return nil, err
	}

	jwtPresentation, err := getUserSetBool(cmd, jwtPresentationFlagName, jwtPresentationEnvKey)
	if err != nil {
		return nil, err
	}

	decode, err := getUserSetBool(cmd, jwtDecodeFlagName, jwtDecodeEnvKey)
	if err != nil {
		return nil, err
	}

	presentation, err := getUserSetBool(cmd, presentationFlagName, presentationEnvKey)
	if err != nil {
		return nil, err
	}

	jsonldValidation, err := getUserSetBool(cmd, jsonldValidationFlagName, jsonldValidationEnvKey)
	if err != nil {
		return nil, err
	}

	jsonldContexts, err := getUserSetVars(cmd, jsonldContextFlagName, jsonldContextEnvKey)
	if err != nil {
		return nil, err
	}

	externalContexts, err := getUserSetVars(cmd, jsonldExternalContextFlagName, jsonldExternalContextEnvKey)
	if err != nil {
		return nil, err
	}

	cacheSize, cacheSizeSet, err := getUserSetInt(cmd, jsonldCacheSizeFlagName, jsonldCacheSizeEnvKey)
	if err != nil {
		return nil, err
	}

	if !jsonldValidation && (cacheSizeSet || len(jsonldContexts) > 0) {
		return nil, generator.NewInputError(errors.Errorf("%s and %s are used only with %s",
			jsonldContextFlagName, jsonldCacheSizeFlagName, jsonldValidationFlagName))
	}

	strictValidation, err := getUserSetBool(cmd, strictValidationFlagName, strictValidationEnvKey)
	if err != nil {
		return nil, err
	}

	baseContextOnly, err := getUserSetBool(cmd, baseContextOnlyFlagName, baseContextOnlyEnvKey)
	if err != nil {
		return nil, err
	}

	logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey)
	if err != nil {
		return nil, err
	}

	return &generateParameters{
		opts: &generator.Options{
			JWT:              jwtMode,
			KeyBlob:          keyBlob,
			Audience:         audience,
			NoJWS:            noJWS,
			JWTPresentation:  jwtPresentation,
			Decode:           decode,
			Presentation:     presentation,
			JSONLDValidation: jsonldValidation,
			StrictValidation: strictValidation,
			BaseContextOnly:  baseContextOnly,
			ExternalContexts: externalContexts,
		},
		jsonldContexts:  jsonldContexts,
		jsonldCacheSize: cacheSize,
		logLevel:        logLevel,
	}, nil
}

func generate(out io.Writer, opts *generator.Options, input []byte) error {
	g, err := generator.New(opts)
	if err != nil {
		return err
	}

	logger.Infof("generating %s output", g.Mode())

	output, err := g.Generate(input)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintln(out, output); err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

// readInput reads the whole input file. The content is kept byte for byte.
func readInput(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, generator.NewInputError(errors.Wrap(err, "cannot open input file"))
	}

	input, err := io.ReadAll(f)

	if closeErr := f.Close(); closeErr != nil {
		logger.Warnf("close input file %s: %v", path, closeErr)
	}

	if err != nil {
		return nil, generator.NewInputError(errors.Wrapf(err, "cannot read input file %s", path))
	}

	if len(bytes.TrimSpace(input)) == 0 {
		return nil, generator.NewInputError(errors.Errorf("input file %s is empty", path))
	}

	return input, nil
}

// createDocumentLoader builds the JSON-LD document loader. Zero cache size keeps the loader's default.
func createDocumentLoader(contextSpecs []string, cacheSize int) (*ld.DocumentLoader, error) {
	contexts, err := ld.ReadContextFiles(contextSpecs)
	if err != nil {
		return nil, generator.NewInputError(errors.Wrap(err, "read JSON-LD contexts"))
	}

	opts := []ld.Opts{
		ld.WithExtraContexts(contexts...),
		ld.WithRemoteDocumentLoader(ld.NewRemoteDocumentLoader(&http.Client{Timeout: remoteContextTimeout})),
	}

	if cacheSize != 0 {
		opts = append(opts, ld.WithCacheSize(cacheSize))
	}

	loader, err := ld.NewDocumentLoader(opts...)
	if err != nil {
		return nil, generator.NewInputError(errors.Wrap(err, "create JSON-LD document loader"))
	}

	return loader, nil
}

func setLogLevel(logLevel string) error {
	if logLevel == "" {
		logLevel = defaultLogLevel
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return generator.NewInputError(errors.Wrapf(err, "failed to parse log level '%s'", logLevel))
	}

	log.SetLevel("", level)

	logger.Debugf("logger level set to %s", logLevel)

	return nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", generator.NewInputError(errors.Wrapf(err, "%s flag not found", flagName))
		}

		return value, nil
	}

	value, _ := os.LookupEnv(envKey)

	return value, nil
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, generator.NewInputError(errors.Wrapf(err, "%s flag not found", flagName))
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet && value != "" {
		values = strings.Split(value, ",")
	}

	return values, nil
}

func getUserSetBool(cmd *cobra.Command, flagName, envKey string) (bool, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetBool(flagName)
		if err != nil {
			return false, generator.NewInputError(errors.Wrapf(err, "%s flag not found", flagName))
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)
	if !isSet || value == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, generator.NewInputError(errors.Wrapf(err, "invalid value of %s", envKey))
	}

	return b, nil
}

// getUserSetInt returns the flag or env value and whether either was set.
func getUserSetInt(cmd *cobra.Command, flagName, envKey string) (int, bool, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetInt(flagName)
		if err != nil {
			return 0, false, generator.NewInputError(errors.Wrapf(err, "%s flag not found", flagName))
		}

		return value, true, nil
	}

	value, isSet := os.LookupEnv(envKey)
	if !isSet || value == "" {
		return 0, false, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, generator.NewInputError(errors.Wrapf(err, "invalid value of %s", envKey))
	}

	return n, true, nil
}
