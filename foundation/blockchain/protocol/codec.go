package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultMaxFrameSize is the largest line the decoder accepts. A pong
// carries the whole chain so this is generous.
const DefaultMaxFrameSize = 32 << 20

// Set of error variables for framing.
var (
	ErrDecode       = errors.New("unable to decode message")
	ErrFrameTooLong = errors.New("frame exceeds the max frame size")
)

// Encode serializes the message and terminates it with a newline. JSON
// escapes newlines inside strings so a frame never contains one.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	return append(data, '\n'), nil
}

// Decoder reads newline delimited messages from a stream. Partial reads are
// buffered until a full line is available.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder constructs a decoder over the reader. A maxFrameSize of zero
// uses the default.
func NewDecoder(r io.Reader, maxFrameSize int) *Decoder {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	// The scanner accepts tokens up to the larger of the initial buffer
	// capacity and the max, so the buffer can't start above the max.
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxFrameSize)), maxFrameSize)

	return &Decoder{
		scanner: scanner,
	}
}

// Decode returns the next message on the stream. It returns io.EOF once the
// stream ends. Any other error means the stream can't be trusted anymore.
func (d *Decoder) Decode() (Message, error) {
	for {
		if !d.scanner.Scan() {
			err := d.scanner.Err()
			switch {
			case err == nil:
				return Message{}, io.EOF
			case errors.Is(err, bufio.ErrTooLong):
				return Message{}, ErrFrameTooLong
			default:
				return Message{}, err
			}
		}

		line := d.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if !utf8.Valid(line) {
			return Message{}, fmt.Errorf("%w: frame is not valid utf8", ErrDecode)
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}

		switch msg.Type {
		case TypePing, TypePong, TypePeerList, TypeTransaction:
		default:
			return Message{}, fmt.Errorf("%w: unknown message type %q", ErrDecode, msg.Type)
		}

		return msg, nil
	}
}
