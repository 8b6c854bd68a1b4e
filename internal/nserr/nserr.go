// Package nserr defines the sentinel error kinds directives and the send
// pipeline can fail with. Call sites wrap these with fmt.Errorf("...: %w", ...)
// so callers can still errors.Is against the kind while getting a
// human-readable cause.
package nserr

import "errors"

var (
	// ErrParse covers malformed directives, bad domain names, class/type
	// lookup failures, zonefile scanner rejections, and class mismatches.
	ErrParse = errors.New("parse error")

	// ErrInvalidArgument covers structurally valid but semantically wrong
	// arguments, e.g. a key directive with no secret.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSupported covers GSS-TSIG variants and realm, which this client
	// never implements.
	ErrNotSupported = errors.New("not supported")

	// ErrBuild covers DNS message assembly failures (almost always size).
	ErrBuild = errors.New("failed to build message")

	// ErrConnectionRefused is returned once the retry budget for a send is
	// exhausted without a response.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrTSIG covers signing and verification failures.
	ErrTSIG = errors.New("tsig error")

	// ErrSemanticCheck is returned when startup configuration is rejected
	// more than once (reserved for the config loader; unreachable mid-session).
	ErrSemanticCheck = errors.New("semantic check failed")
)
