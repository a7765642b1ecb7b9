// Package source implements the Sample Source adapter: a small
// peek/commit/seek contract that the FFT Worker drives to pull raw IQ
// bytes off a receiver without the worker caring whether the byte stream
// comes from a device file, a network socket, or a synthetic generator.
//
// The worker needs to look at a block of bytes before deciding whether it
// has enough data for a full frame (Peek), and the synchronizer needs to
// discard a number of samples once it has computed the
// inter-receiver lag (Seek). Plain io.Reader can do neither without an
// explicit buffering layer, so Source supplies one.
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/hnez/SoFi"
)

// Source is the Sample Source adapter described for the FFT Worker: a
// byte-oriented, peekable, seekable stream of raw IQ samples.
type Source interface {
	// Peek returns up to maxBytes of not-yet-committed data without
	// advancing the stream. Calling Peek again before Commit returns the
	// same bytes (plus any newly available data), never fewer.
	Peek(maxBytes int) ([]byte, error)

	// Commit advances the stream past the bytes returned by the most
	// recent Peek.
	Commit() error

	// Seek discards deltaSamples worth of IQ samples (u8 interleaved,
	// two bytes per sample) from the head of the stream. A negative
	// deltaSamples is a programming error: a byte-oriented source cannot
	// rewind past data it has already committed.
	Seek(deltaSamples int) error
}

// BytesPerSample is the wire size of one interleaved IQ sample as produced
// by the raw receiver devices this module targets (sdr.SampleFormatU8).
const BytesPerSample = 2

// ErrNegativeSeek is returned by Seek when asked to rewind.
var ErrNegativeSeek = errors.New("source: cannot seek backward")

// FileSource adapts an io.Reader (typically an *os.File opened on a device
// node) to the Source contract, using a single growable buffer so that a
// short underlying read never loses bytes between Peek calls.
type FileSource struct {
	r      io.Reader
	buf    []byte // bytes read but not yet committed
	peeked int    // length of the most recent Peek's result
}

// NewFileSource wraps r as a Source.
func NewFileSource(r io.Reader) *FileSource {
	return &FileSource{r: r}
}

// Peek implements Source.
func (f *FileSource) Peek(maxBytes int) ([]byte, error) {
	for len(f.buf) < maxBytes {
		chunk := make([]byte, maxBytes-len(f.buf))
		n, err := f.r.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
		}
		if err != nil {
			if len(f.buf) > 0 {
				// Return what we have; the caller decides whether a
				// short read is usable.
				break
			}
			return nil, fmt.Errorf("%w: %s", sdr.ErrIO, err)
		}
	}
	if len(f.buf) > maxBytes {
		f.peeked = maxBytes
		return f.buf[:maxBytes], nil
	}
	f.peeked = len(f.buf)
	return f.buf, nil
}

// Commit implements Source.
func (f *FileSource) Commit() error {
	f.buf = f.buf[f.peeked:]
	f.peeked = 0
	return nil
}

// Seek implements Source by reading and discarding deltaSamples samples.
// Device files backing this Source are not guaranteed to support
// io.Seeker, so discarding by reading is the only portable strategy.
func (f *FileSource) Seek(deltaSamples int) error {
	if deltaSamples < 0 {
		return ErrNegativeSeek
	}
	remaining := deltaSamples * BytesPerSample
	f.peeked = 0

	if len(f.buf) > 0 {
		n := remaining
		if n > len(f.buf) {
			n = len(f.buf)
		}
		f.buf = f.buf[n:]
		remaining -= n
	}

	discard := make([]byte, 4096)
	for remaining > 0 {
		n := len(discard)
		if remaining < n {
			n = remaining
		}
		read, err := f.r.Read(discard[:n])
		remaining -= read
		if err != nil && read == 0 {
			return fmt.Errorf("%w: %s", sdr.ErrIO, err)
		}
	}
	return nil
}
