// Copyright 2026 The ShopStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import "time"

// SuccessEnvelope is the standard success shape relayed to the browser.
type SuccessEnvelope struct {
	Data      any    `json:"data"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope is the standard error shape.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the normalized error detail.
type ErrorBody struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Success wraps data in the standard envelope.
func Success(data any) SuccessEnvelope {
	return SuccessEnvelope{Data: data, Success: true, Timestamp: nowStamp()}
}

// Error builds the standard error envelope.
func Error(message string, status int, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorBody{
		Message:   message,
		Status:    status,
		Details:   details,
		Timestamp: nowStamp(),
	}}
}
