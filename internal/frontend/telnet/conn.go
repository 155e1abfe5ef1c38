package telnet

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Telnet IAC (Interpret As Command) constants per RFC 854.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Sub-negotiation Begin
	SE   byte = 240 // Sub-negotiation End
	NOP  byte = 241

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
)

// DefaultMaxLineLength bounds an input line when none is configured.
const DefaultMaxLineLength = 4096

// ErrLineTooLong is returned by ReadLine when a line exceeds the limit.
var ErrLineTooLong = errors.New("telnet line too long")

// Conn wraps a TCP connection with Telnet protocol handling. Reads strip IAC
// sequences and control bytes; writes translate newlines to CRLF.
//
// ReadLine must be called from a single goroutine; writes may come from any.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout   time.Duration
	writeTimeout  time.Duration
	maxLineLength int
}

// NewConn wraps a raw TCP connection. A maxLineLength <= 0 selects
// DefaultMaxLineLength.
//
// Precondition: raw must be a valid, open network connection.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration, maxLineLength int) *Conn {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return &Conn{
		raw:           raw,
		reader:        bufio.NewReaderSize(raw, 4096),
		readTimeout:   readTimeout,
		writeTimeout:  writeTimeout,
		maxLineLength: maxLineLength,
	}
}

// Negotiate asks the client to suppress go-ahead.
//
// Postcondition: Negotiation bytes are written to the connection.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine reads a single line of input, filtering Telnet IAC sequences.
// The returned line does not include the trailing \r\n. A zero read timeout
// waits indefinitely.
//
// Postcondition: Returns the next line of text input, or an error (including
// io.EOF). A line longer than the limit yields ErrLineTooLong and the session
// should be closed.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}

		if b == IAC {
			if err := c.skipCommand(); err != nil {
				return line.String(), err
			}
			continue
		}

		if b == '\n' {
			break
		}
		if b == '\r' {
			next, err := c.reader.Peek(1)
			if err == nil && len(next) > 0 && (next[0] == '\n' || next[0] == 0) {
				_, _ = c.reader.ReadByte()
			}
			break
		}

		// Control characters other than tab are dropped.
		if b < 32 && b != '\t' {
			continue
		}

		if line.Len() >= c.maxLineLength {
			return "", fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, c.maxLineLength)
		}
		line.WriteByte(b)
	}

	return line.String(), nil
}

// skipCommand consumes the remainder of an IAC sequence.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}

	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err := c.reader.ReadByte()
		return err
	case SB:
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if b != IAC {
				continue
			}
			next, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if next == SE {
				return nil
			}
		}
	}
	// Escaped IAC, NOP, GA and friends carry no option byte.
	return nil
}

// WriteLine sends text followed by \r\n. Embedded newlines become \r\n.
//
// Postcondition: text is written to the connection as one or more lines.
func (c *Conn) WriteLine(text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return c.Write([]byte(strings.ReplaceAll(text, "\n", "\r\n") + "\r\n"))
}

// Write sends raw bytes to the client.
//
// Postcondition: The data is written to the connection.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the underlying TCP connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
