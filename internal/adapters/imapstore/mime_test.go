package imapstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rawMessage(lines ...string) string {
	return strings.Join(lines, "\r\n")
}

func TestDecodeHeaderPlain(t *testing.T) {
	assert.Equal(t, "Quarterly report", decodeHeader("Quarterly report"))
	assert.Equal(t, "", decodeHeader(""))
}

func TestDecodeHeaderEncodedWords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "base64 utf-8",
			raw:  "=?UTF-8?B?8J+Ygg==?=",
			want: "\U0001F602",
		},
		{
			name: "quoted printable latin-1",
			raw:  "=?ISO-8859-1?Q?caf=E9?=",
			want: "café",
		},
		{
			name: "mixed fragments",
			raw:  "=?ISO-8859-1?Q?caf=E9?= open now",
			want: "café open now",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeHeader(tt.raw))
		})
	}
}

func TestDecodeHeaderUnknownCharsetRecovers(t *testing.T) {
	// The payload byte 0xFF is not valid UTF-8, so the fragment is kept
	// with a replacement character instead of dropping the header
	got := decodeHeader("=?x-fantasy?Q?na=FFve?=")
	assert.Equal(t, "na�ve", got)
}

func TestParseMessagePrefersPlainText(t *testing.T) {
	msg := rawMessage(
		"From: =?ISO-8859-1?Q?Ren=E9?= <rene@example.com>",
		"Subject: =?UTF-8?B?8J+Ygg==?= deal inside",
		"Date: Mon, 10 Mar 2025 10:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=b1",
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Click here!</p>",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Click here!",
		"--b1--",
		"",
	)

	record, err := parseMessage(strings.NewReader(msg), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "René <rene@example.com>", record.Sender)
	assert.Equal(t, "\U0001F602 deal inside", record.Subject)
	assert.Equal(t, "Mon, 10 Mar 2025 10:00:00 +0000", record.Date)
	assert.Equal(t, "Click here!", strings.TrimSpace(record.Body))
}

func TestParseMessageSimpleBody(t *testing.T) {
	msg := rawMessage(
		"From: alice@example.com",
		"Subject: lunch",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Meet at noon?",
		"",
	)

	record, err := parseMessage(strings.NewReader(msg), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", record.Sender)
	assert.Equal(t, "Meet at noon?", strings.TrimSpace(record.Body))
}

func TestParseMessageSkipsAttachments(t *testing.T) {
	msg := rawMessage(
		"From: bob@example.com",
		"Subject: logs",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=b2",
		"",
		"--b2",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Disposition: attachment; filename=log.txt",
		"",
		"attached diagnostics",
		"--b2--",
		"",
	)

	record, err := parseMessage(strings.NewReader(msg), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "", record.Body)
}

func TestParseMessageNoPlainTextPart(t *testing.T) {
	msg := rawMessage(
		"From: carol@example.com",
		"Subject: newsletter",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=b3",
		"",
		"--b3",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<h1>News</h1>",
		"--b3--",
		"",
	)

	record, err := parseMessage(strings.NewReader(msg), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "newsletter", record.Subject)
	assert.Equal(t, "", record.Body)
}
