//
// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package dpquery

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the engine.
type ErrorKind int

// Failure kinds returned by Engine methods.
const (
	// ConfigurationError: column unset or unknown, bounds unparsable or
	// inverted, or δ unusable in strict mode.
	ConfigurationError ErrorKind = iota + 1
	// DataError: the target column has no valid numeric entries.
	DataError
	// MechanismError: unsupported mechanism or query, violated mechanism
	// preconditions, or a failed noise calibration.
	MechanismError
	// ExportError: the perturbed dataset could not be written.
	ExportError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case DataError:
		return "DataError"
	case MechanismError:
		return "MechanismError"
	case ExportError:
		return "ExportError"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the typed failure returned by Engine methods.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // Underlying cause, if any.
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// MarshalJSON encodes the failure payload {kind, message}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{e.Kind.String(), e.Message})
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
