// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package sdr

import (
	"fmt"
)

// Error kinds shared by the worker, synchronizer, combiner and pipeline
// packages, so callers can classify failures with errors.Is regardless of
// which layer produced them.
var (
	// ErrIO indicates a failure reading from or writing to an underlying
	// byte stream (a device file, a socket, a pipe).
	ErrIO = fmt.Errorf("sdr: io error")

	// ErrInvalidArgument indicates a caller-supplied parameter (frame
	// size, receiver count, decimation factor) is out of range.
	ErrInvalidArgument = fmt.Errorf("sdr: invalid argument")

	// ErrResourceExhausted indicates an allocation (a ring, a buffer
	// pool) could not be satisfied.
	ErrResourceExhausted = fmt.Errorf("sdr: resource exhausted")

	// ErrStopped is returned to any caller blocked on a ring or worker
	// that has been asked to stop.
	ErrStopped = fmt.Errorf("sdr: stopped")

	// ErrBusy is returned when a ring or worker cannot be torn down
	// because a consumer still holds a reference into it.
	ErrBusy = fmt.Errorf("sdr: busy")
)

// vim: foldmethod=marker
