/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package generator

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Type is generator error type.
type Type int32

const (
	// InputError is error type for a malformed invocation or an unusable input file.
	InputError Type = iota

	// KeyError is error type for a key blob which cannot be decoded into an RSA private key.
	KeyError

	// SignatureError is error type for a JWT whose RS256 signature does not verify.
	SignatureError

	// ConversionError is error type for a document which cannot be parsed, converted or signed.
	ConversionError
)

func (t Type) String() string {
	switch t {
	case InputError:
		return "input error"
	case KeyError:
		return "key error"
	case SignatureError:
		return "signature error"
	case ConversionError:
		return "conversion error"
	default:
		return fmt.Sprintf("error type %d", int32(t))
	}
}

// Code is the process exit code of a generator error.
type Code int

const (
	// Success exit code.
	Success Code = 0

	// InputFailure exit code for input errors.
	InputFailure Code = 1

	// CryptoFailure exit code for key and signature errors.
	CryptoFailure Code = 2

	// ConversionFailure exit code for conversion errors and errors of unknown type.
	ConversionFailure Code = 3
)

// Error is the interface for representing a generator error condition, with the nil value representing no error.
type Error interface {
	error
	// Code returns exit code for this generator error.
	Code() Code
	// Type returns error type for this generator error.
	Type() Type
}

// NewInputError returns new input error.
func NewInputError(err error) Error {
	return newError(InputError, err)
}

// NewKeyError returns new key error.
func NewKeyError(err error) Error {
	return newError(KeyError, err)
}

// NewSignatureError returns new signature error.
func NewSignatureError(err error) Error {
	return newError(SignatureError, err)
}

// NewConversionError returns new conversion error.
func NewConversionError(err error) Error {
	return newError(ConversionError, err)
}

func newError(errType Type, err error) Error {
	var st interface{ StackTrace() pkgerrors.StackTrace }

	if !errors.As(err, &st) {
		err = pkgerrors.WithStack(err)
	}

	return &generatorError{error: err, errType: errType}
}

// generatorError implements basic generator Error.
type generatorError struct {
	error
	errType Type
}

func (e *generatorError) Code() Code {
	switch e.errType {
	case InputError:
		return InputFailure
	case KeyError, SignatureError:
		return CryptoFailure
	default:
		return ConversionFailure
	}
}

func (e *generatorError) Type() Type {
	return e.errType
}

func (e *generatorError) Unwrap() error {
	return e.error
}

// Format prints the stack trace of the wrapped error with %+v.
func (e *generatorError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", e.errType, e.error)
		return
	}

	fmt.Fprintf(s, "%s: %s", e.errType, e.error.Error())
}

func (e *generatorError) Error() string {
	return fmt.Sprintf("%s: %s", e.errType, e.error.Error())
}

// ExitCode maps err to the process exit code. Errors which are not generator errors are
// reported as conversion failures.
func ExitCode(err error) Code {
	if err == nil {
		return Success
	}

	var genErr Error
	if errors.As(err, &genErr) {
		return genErr.Code()
	}

	return ConversionFailure
}
