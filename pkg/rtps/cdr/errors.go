package cdr

import "errors"

// Decode error taxonomy per the protocol-parse-error class: logged at
// debug by the caller, offending submessage skipped, participant continues.
var (
	ErrTruncatedData       = errors.New("cdr: truncated data")
	ErrInvalidEncapsulation = errors.New("cdr: invalid encapsulation header")
	ErrInvalidFormat       = errors.New("cdr: invalid format")
	ErrBufferTooSmall      = errors.New("cdr: buffer too small")
)
