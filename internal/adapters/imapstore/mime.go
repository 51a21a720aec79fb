package imapstore

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/inboxguard/inboxguard/internal/core"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func init() {
	// Register spellings the IANA index does not know but real mail uses
	charset.RegisterEncoding("utf8", unicode.UTF8)
	charset.RegisterEncoding("cp1251", charmap.Windows1251)
	charset.RegisterEncoding("cp1252", charmap.Windows1252)
	charset.RegisterEncoding("latin1", charmap.ISO8859_1)
}

// headerDecoder decodes RFC 2047 encoded words. An unknown charset falls
// back to the fragment's raw bytes instead of failing the header.
var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(cs string, input io.Reader) (io.Reader, error) {
		r, err := charset.Reader(cs, input)
		if err != nil {
			return input, nil
		}
		return r, nil
	},
}

// decodeHeader decodes a header value fragment by fragment, recovering
// undecodable fragments as lossy UTF-8
func decodeHeader(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := headerDecoder.DecodeHeader(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, string(utf8.RuneError))
	}
	return strings.ToValidUTF8(decoded, string(utf8.RuneError))
}

// parseMessage reads one raw message and extracts the sender, subject, date
// and the first text/plain part that is not an attachment. Messages without
// a plain text part yield an empty body.
func parseMessage(r io.Reader, logger *zap.Logger) (*core.EmailRecord, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	record := &core.EmailRecord{
		Sender:  decodeHeader(mr.Header.Get("From")),
		Subject: decodeHeader(mr.Header.Get("Subject")),
		Date:    mr.Header.Get("Date"),
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Debug("Stopping at unreadable message part", zap.Error(err))
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil || contentType != "text/plain" {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			logger.Debug("Skipping unreadable text part", zap.Error(err))
			continue
		}

		record.Body = strings.ToValidUTF8(string(body), string(utf8.RuneError))
		break
	}

	return record, nil
}
