// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package investigation

import "errors"

var (
	// ErrInvalidInput rejects an operation before anything is mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistenceUnavailable means the adapter could not read or write.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrCorruptDocument means the stored bytes are not a usable document.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrUnsupportedSchema is wrapped by ErrCorruptDocument for documents
	// written by a newer build.
	ErrUnsupportedSchema = errors.New("unsupported schema version")

	// ErrVersionConflict is returned by adapters when the stored version
	// no longer matches the one the caller read.
	ErrVersionConflict = errors.New("document version conflict")
)
