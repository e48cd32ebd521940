package mime

import (
	"bufio"
	"io"
	"strings"

	"github.com/sirosfoundation/go-as2/pkg/protocol"
)

const crlf = "\r\n"

// ReadBodyPart reads one body part from r, which must be positioned at the
// first octet of the part. Lines are accumulated with CRLF terminators
// until a line equal to the open or close delimiter of boundary is read.
// The terminator preceding the delimiter belongs to the delimiter and is
// dropped from the result.
//
// If the stream ends before a delimiter line is found, ReadBodyPart fails
// with protocol.ErrProtocolFormat and returns no content.
func ReadBodyPart(r *bufio.Reader, boundary string) (string, error) {
	var content strings.Builder

	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", protocol.Wrap(protocol.ErrProtocolFormat, err, "failed to read body part")
		}
		if line == "" && err == io.EOF {
			break
		}

		line = trimLineTerminator(line)
		if IsBoundaryDelimiter(line, boundary) {
			return strings.TrimSuffix(content.String(), crlf), nil
		}

		content.WriteString(line)
		content.WriteString(crlf)

		if err == io.EOF {
			break
		}
	}

	return "", protocol.Errorf(protocol.ErrProtocolFormat,
		"failed to find end boundary delimiter %q for body part", boundary)
}

// SkipPreamble discards everything up to and including the first delimiter
// line of boundary. A close delimiter in that position means the multipart
// body has no parts and is rejected.
func SkipPreamble(r *bufio.Reader, boundary string) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return protocol.Wrap(protocol.ErrProtocolFormat, err, "failed to read multipart preamble")
		}
		line = trimLineTerminator(line)
		if IsCloseDelimiter(line, boundary) {
			return protocol.Errorf(protocol.ErrProtocolFormat, "multipart body with boundary %q has no parts", boundary)
		}
		if IsBoundaryDelimiter(line, boundary) {
			return nil
		}
		if err == io.EOF {
			return protocol.Errorf(protocol.ErrProtocolFormat,
				"boundary delimiter %q not found in multipart body", boundary)
		}
	}
}

// IsBoundaryDelimiter reports whether line (without its terminator) is the
// open or close delimiter of boundary. Trailing linear whitespace is
// allowed after the delimiter.
func IsBoundaryDelimiter(line, boundary string) bool {
	if boundary == "" {
		return false
	}
	line = strings.TrimRight(line, " \t")
	delimiter := "--" + boundary
	return line == delimiter || line == delimiter+"--"
}

// IsCloseDelimiter reports whether line is the close delimiter of boundary.
func IsCloseDelimiter(line, boundary string) bool {
	return boundary != "" && strings.TrimRight(line, " \t") == "--"+boundary+"--"
}

func trimLineTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
