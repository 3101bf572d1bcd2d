/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package generator produces W3C VC test suite fixtures from a credential document:
// canonical JSON, RS256 signed JWT credentials and presentations, unsigned JWT claims,
// and credentials decoded back from signed JWTs.
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	jsonld "github.com/piprate/json-gold/ld"
	pkgerrors "github.com/pkg/errors"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/jose/jwk"
	"github.com/vctestsuite/vc-test-generator/pkg/doc/jwt"
	"github.com/vctestsuite/vc-test-generator/pkg/doc/util/canonical"
	"github.com/vctestsuite/vc-test-generator/pkg/doc/verifiable"
)

var logger = log.New("vc-test-generator/generator")

// Mode is the kind of document the generator produces.
type Mode int

const (
	// ModePlain parses the input credential and prints it as canonical JSON.
	ModePlain Mode = iota
	// ModePlainPresentation parses the input presentation and prints it as canonical JSON.
	ModePlainPresentation
	// ModeDecode verifies the input JWT credential and prints the credential as canonical JSON.
	ModeDecode
	// ModePresentation signs the input credential and wraps it into a signed JWT presentation.
	ModePresentation
	// ModeUnsigned prints the JWT claims of the input credential without signing them.
	ModeUnsigned
	// ModeSigned prints the input credential as a signed JWT.
	ModeSigned
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModePlainPresentation:
		return "plain presentation"
	case ModeDecode:
		return "JWT decode"
	case ModePresentation:
		return "JWT presentation"
	case ModeUnsigned:
		return "unsigned JWT"
	case ModeSigned:
		return "signed JWT"
	default:
		return fmt.Sprintf("mode %d", int(m))
	}
}

// Options of a generator run.
type Options struct {
	// KeyBlob is base64 encoded JSON object with the RSA key in rs256PrivateKeyJwk.
	// JWT modes are used when it is not empty.
	KeyBlob string
	// JWT selects JWT modes even if KeyBlob is empty, so that a key given empty is reported.
	JWT bool
	// Audience goes to aud claim of both credential and presentation JWTs.
	Audience string

	NoJWS           bool
	JWTPresentation bool
	Decode          bool

	// Presentation makes the plain mode read a presentation instead of a credential.
	Presentation bool

	// StrictValidation rejects fields unknown to the base schema and, with JSON-LD validation,
	// terms dropped by JSON-LD compaction.
	StrictValidation bool
	// BaseContextOnly rejects credentials with contexts or types other than the base ones.
	BaseContextOnly bool

	// JSONLDValidation validates documents by JSON-LD compaction in addition to JSON schema.
	JSONLDValidation bool
	// ExternalContexts are added to the document contexts for JSON-LD validation.
	ExternalContexts []string
	// DocumentLoader loads JSON-LD contexts. A caching remote loader is used if it is nil.
	DocumentLoader jsonld.DocumentLoader
}

// ResolveMode picks the mode of the options. Decode wins over presentation, which wins over
// unsigned output.
func ResolveMode(opts *Options) Mode {
	jwtMode := opts.JWT || opts.KeyBlob != ""

	switch {
	case !jwtMode && opts.Presentation:
		return ModePlainPresentation
	case !jwtMode:
		return ModePlain
	case opts.Decode:
		return ModeDecode
	case opts.JWTPresentation:
		return ModePresentation
	case opts.NoJWS:
		return ModeUnsigned
	default:
		return ModeSigned
	}
}

// Generator converts input documents according to its mode.
type Generator struct {
	mode     Mode
	audience string

	key *jwk.RSAKey

	vcOpts []verifiable.CredentialOpt
	vpOpts []verifiable.PresentationOpt
}

// New creates a generator. The key blob is parsed here, so key errors are reported before any input is processed.
func New(opts *Options) (*Generator, error) {
	g := &Generator{
		mode:     ResolveMode(opts),
		audience: opts.Audience,
	}

	if len(opts.ExternalContexts) > 0 && !opts.JSONLDValidation {
		return nil, NewInputError(pkgerrors.New("external JSON-LD contexts are used only with JSON-LD validation"))
	}

	if g.mode != ModePlain && g.mode != ModePlainPresentation {
		key, err := ParseKeyBlob(opts.KeyBlob)
		if err != nil {
			return nil, err
		}

		g.key = key
	}

	g.vcOpts, g.vpOpts = validationOpts(opts)

	return g, nil
}

func validationOpts(opts *Options) ([]verifiable.CredentialOpt, []verifiable.PresentationOpt) {
	// the VC test suite expects verifiableCredential to be present
	vpOpts := []verifiable.PresentationOpt{verifiable.WithPresRequireVC()}

	var vcOpts []verifiable.CredentialOpt

	if opts.StrictValidation {
		vcOpts = append(vcOpts, verifiable.WithStrictValidation())
		vpOpts = append(vpOpts, verifiable.WithPresStrictValidation())
	}

	if opts.BaseContextOnly {
		vcOpts = append(vcOpts, verifiable.WithBaseContextValidation())
	}

	if !opts.JSONLDValidation {
		return vcOpts, vpOpts
	}

	vcOpts = append(vcOpts, verifiable.WithJSONLDValidation())
	vpOpts = append(vpOpts, verifiable.WithPresJSONLDValidation())

	if opts.DocumentLoader != nil {
		vcOpts = append(vcOpts, verifiable.WithJSONLDDocumentLoader(opts.DocumentLoader))
		vpOpts = append(vpOpts, verifiable.WithPresJSONLDDocumentLoader(opts.DocumentLoader))
	}

	if len(opts.ExternalContexts) > 0 {
		vcOpts = append(vcOpts, verifiable.WithExternalJSONLDContext(opts.ExternalContexts...))
		vpOpts = append(vpOpts, verifiable.WithPresExternalJSONLDContext(opts.ExternalContexts...))
	}

	return vcOpts, vpOpts
}

// Mode returns the mode of the generator.
func (g *Generator) Mode() Mode {
	return g.mode
}

// Generate converts input into the single line printed by the generator.
func (g *Generator) Generate(input []byte) (string, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return "", NewInputError(pkgerrors.New("input is empty"))
	}

	logger.Debugf("generating in %s mode", g.mode)

	switch g.mode {
	case ModePlain:
		return g.encodeVCToJSON(input)
	case ModePlainPresentation:
		return g.encodeVPToJSON(input)
	case ModeDecode:
		return g.decodeVCJWTToJSON(input)
	case ModePresentation:
		return g.encodeVPToJWS(input)
	case ModeUnsigned:
		return g.encodeVCToJWTUnsecured(input)
	case ModeSigned:
		return g.encodeVCToJWS(input)
	default:
		return "", NewInputError(pkgerrors.Errorf("unsupported mode %s", g.mode))
	}
}

func (g *Generator) encodeVCToJSON(vcBytes []byte) (string, error) {
	credential, err := g.parseCredential(vcBytes)
	if err != nil {
		return "", err
	}

	return toCanonicalJSON(credential)
}

func (g *Generator) encodeVPToJSON(vpBytes []byte) (string, error) {
	vp, err := verifiable.ParsePresentation(vpBytes, g.vpOpts...)
	if err != nil {
		return "", NewConversionError(pkgerrors.Wrap(err, "failed to decode presentation"))
	}

	return toCanonicalJSON(vp)
}

func (g *Generator) encodeVCToJWTUnsecured(vcBytes []byte) (string, error) {
	jwtClaims, err := g.credentialClaims(vcBytes)
	if err != nil {
		return "", err
	}

	return toCanonicalJSON(jwtClaims)
}

func (g *Generator) encodeVCToJWS(vcBytes []byte) (string, error) {
	jwtClaims, err := g.credentialClaims(vcBytes)
	if err != nil {
		return "", err
	}

	return g.sign(jwtClaims, "credential")
}

func (g *Generator) encodeVPToJWS(vcBytes []byte) (string, error) {
	jwtClaims, err := g.credentialClaims(vcBytes)
	if err != nil {
		return "", err
	}

	vcJWT, err := g.sign(jwtClaims, "credential")
	if err != nil {
		return "", err
	}

	// the subject of the credential presents it
	vpClaims, err := verifiable.NewJWTPresClaims(vcJWT, jwtClaims.Subject, g.audience)
	if err != nil {
		return "", NewConversionError(pkgerrors.Wrap(err, "failed to build JWT presentation claims"))
	}

	return g.sign(vpClaims, "presentation")
}

func (g *Generator) decodeVCJWTToJSON(jwtBytes []byte) (string, error) {
	payload, err := jwt.VerifyRS256(strings.TrimSpace(string(jwtBytes)), g.key.Public())
	if err != nil {
		if errors.Is(err, jwt.ErrInvalidSignature) {
			return "", NewSignatureError(pkgerrors.Wrap(err, "failed to verify JWT credential"))
		}

		return "", NewConversionError(pkgerrors.Wrap(err, "failed to decode JWT credential"))
	}

	jwtClaims, err := verifiable.ParseJWTCredClaims(payload)
	if err != nil {
		return "", NewConversionError(pkgerrors.Wrap(err, "failed to decode JWT credential"))
	}

	credential, err := jwtClaims.Credential(g.vcOpts...)
	if err != nil {
		return "", NewConversionError(pkgerrors.Wrap(err, "failed to decode credential from JWT"))
	}

	return toCanonicalJSON(credential)
}

func (g *Generator) parseCredential(vcBytes []byte) (*verifiable.Credential, error) {
	credential, err := verifiable.ParseCredential(vcBytes, g.vcOpts...)
	if err != nil {
		return nil, NewConversionError(pkgerrors.Wrap(err, "failed to decode credential"))
	}

	return credential, nil
}

func (g *Generator) credentialClaims(vcBytes []byte) (*verifiable.JWTCredClaims, error) {
	credential, err := g.parseCredential(vcBytes)
	if err != nil {
		return nil, err
	}

	jwtClaims, err := credential.JWTClaims(g.audience)
	if err != nil {
		return nil, NewConversionError(pkgerrors.Wrap(err, "verifiable credential encoding to JWT failed"))
	}

	return jwtClaims, nil
}

func (g *Generator) sign(claims interface{}, what string) (string, error) {
	jws, err := jwt.SignRS256(claims, g.key.PrivateKey, g.key.KeyID)
	if err != nil {
		return "", NewKeyError(pkgerrors.Wrapf(err, "failed to sign JWT %s", what))
	}

	logger.Debugf("signed JWT %s", what)

	return jws, nil
}

func toCanonicalJSON(v interface{}) (string, error) {
	out, err := canonical.Marshal(v)
	if err != nil {
		return "", NewConversionError(pkgerrors.Wrap(err, "failed to encode output"))
	}

	return string(out), nil
}
