package intake

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// fallbackCharset decodes text that is neither declared nor valid UTF-8.
const fallbackCharset = "windows-1252"

func decodeCharset(data []byte, charset string) (string, error) {
	if charset == "" {
		if utf8.Valid(data) {
			return string(data), nil
		}
		charset = fallbackCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", eris.Wrapf(err, "intake: unsupported charset %q", charset)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", eris.Wrapf(err, "intake: decode %s text", charset)
	}
	return string(out), nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "intake: read %s", path)
	}
	return decodeCharset(data, "")
}

// readEmail renders an RFC 5322 message as its headers followed by the
// text/plain parts of the body.
func readEmail(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "intake: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return "", eris.Wrapf(err, "intake: parse email %s", path)
	}

	dec := &mime.WordDecoder{CharsetReader: charsetReader}
	header := func(key string) string {
		v := msg.Header.Get(key)
		if decoded, err := dec.DecodeHeader(v); err == nil {
			return decoded
		}
		return v
	}

	var body strings.Builder
	if err := collectPlainText(&body, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body); err != nil {
		return "", eris.Wrapf(err, "intake: read email body %s", path)
	}

	return fmt.Sprintf("Email Metadata:\nFrom: %s\nTo: %s\nSubject: %s\nDate: %s\n\nEmail Body:\n%s",
		header("From"), header("To"), header("Subject"), header("Date"), body.String()), nil
}

func collectPlainText(out *strings.Builder, contentType, transferEncoding string, r io.Reader) error {
	mediaType, params := "text/plain", map[string]string{}
	if contentType != "" {
		var err error
		mediaType, params, err = mime.ParseMediaType(contentType)
		if err != nil {
			return eris.Wrapf(err, "parse content type %q", contentType)
		}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r, params["boundary"])
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return eris.Wrap(err, "read multipart section")
			}
			err = collectPlainText(out, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil {
				return err
			}
		}
	}

	if mediaType != "text/plain" {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return eris.Wrap(err, "read text part")
	}
	text, err := decodeCharset(data, params["charset"])
	if err != nil {
		return err
	}
	out.WriteString(text)
	out.WriteString("\n")
	return nil
}
