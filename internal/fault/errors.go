// Package fault defines the error kinds returned by the ledger layers.
//
// Every failure a repository or workflow operation reports is a *Error carrying
// a Code. Callers branch on the code with Is (or the IsXxx helpers) rather than
// on message text, which is free to change.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes ledger errors.
type Code string

const (
	// CodeAlreadyExists indicates a create on an ID that is already present.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeNotFound indicates a read, update or delete on a missing key.
	CodeNotFound Code = "NOT_FOUND"

	// CodeItemNotFound indicates an item ID absent from a process item list.
	CodeItemNotFound Code = "ITEM_NOT_FOUND"

	// CodeNoItemsList indicates a process without any items.
	CodeNoItemsList Code = "NO_ITEMS_LIST"

	// CodeDanglingReference indicates a linked asset that no longer resolves.
	CodeDanglingReference Code = "DANGLING_REFERENCE"

	// CodeValidationFailed indicates input rejected by workflow policy.
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// CodeCorruptRecord indicates stored bytes that do not decode.
	CodeCorruptRecord Code = "CORRUPT_RECORD"
)

// ErrCorruptRecord is wrapped by codec failures.
var ErrCorruptRecord = &Error{Code: CodeCorruptRecord, Message: "record is not a valid document"}

// Error is a ledger error with a stable code.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Key is the ledger key involved, if any.
	Key string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a keyless sentinel with the same code, so errors.Is(err, ErrCorruptRecord)
// holds for any corrupt-record error.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Key == "" && other.Code == e.Code
}

// Is reports whether err, or any ledger error it wraps, carries the given code.
// A dangling reference wrapping a not-found read therefore matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var fe *Error
		if !errors.As(err, &fe) {
			return false
		}
		if fe.Code == code {
			return true
		}
		err = fe.Err
	}
	return false
}

// CodeOf returns the code of err, or "" when err is not a ledger error.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

func IsNotFound(err error) bool      { return Is(err, CodeNotFound) }
func IsAlreadyExists(err error) bool { return Is(err, CodeAlreadyExists) }
func IsValidation(err error) bool    { return Is(err, CodeValidationFailed) }

// NewAlreadyExists creates an error for a duplicate ID on create.
func NewAlreadyExists(kind, id string) *Error {
	return &Error{
		Code:    CodeAlreadyExists,
		Message: fmt.Sprintf("%s %s is already registered", kind, id),
		Key:     id,
	}
}

// NewNotFound creates an error for a missing key.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s does not exist", kind, id),
		Key:     id,
	}
}

// NewItemNotFound creates an error for an item missing from a process.
func NewItemNotFound(processID, itemID string) *Error {
	return &Error{
		Code:    CodeItemNotFound,
		Message: fmt.Sprintf("item %s not found in process %s", itemID, processID),
		Key:     processID,
		Details: map[string]string{"item_id": itemID},
	}
}

// NewNoItemsList creates an error for a process without items.
func NewNoItemsList(processID string) *Error {
	return &Error{
		Code:    CodeNoItemsList,
		Message: fmt.Sprintf("process %s has no items list", processID),
		Key:     processID,
	}
}

// NewDanglingReference creates an error for a process linking a missing asset.
func NewDanglingReference(processID, assetID string, cause error) *Error {
	return &Error{
		Code:    CodeDanglingReference,
		Message: fmt.Sprintf("process %s links asset %s which does not exist", processID, assetID),
		Key:     processID,
		Details: map[string]string{"asset_id": assetID},
		Err:     cause,
	}
}

// NewValidation creates an error for input rejected by policy.
func NewValidation(field, message string) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: message,
		Details: map[string]string{"field": field},
	}
}

// NewCorruptRecord creates an error for undecodable stored bytes.
func NewCorruptRecord(key string, cause error) *Error {
	return &Error{
		Code:    CodeCorruptRecord,
		Message: ErrCorruptRecord.Message,
		Key:     key,
		Err:     cause,
	}
}
