package intake

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPlainText_UTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "note.txt", "Patient: José Núñez")
	text, err := readPlainText(path)
	require.NoError(t, err)
	assert.Equal(t, "Patient: José Núñez", text)
}

func TestReadPlainText_Windows1252Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	// "Jos\xe9" is José in windows-1252 and invalid UTF-8.
	require.NoError(t, os.WriteFile(path, []byte("Patient: Jos\xe9"), 0o644))

	text, err := readPlainText(path)
	require.NoError(t, err)
	assert.Equal(t, "Patient: José", text)
}

func TestDecodeCharset_Unknown(t *testing.T) {
	_, err := decodeCharset([]byte("x"), "x-klingon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported charset "x-klingon"`)
}

func TestReadEmail_Simple(t *testing.T) {
	raw := "From: Adjuster <adj@carrier.example>\r\n" +
		"To: intake@example.com\r\n" +
		"Subject: =?UTF-8?Q?Referral_for_Jos=C3=A9?=\r\n" +
		"Date: Mon, 2 Mar 2026 10:00:00 -0500\r\n" +
		"\r\n" +
		"Please schedule an MRI.\r\n"
	path := writeFile(t, t.TempDir(), "referral.eml", raw)

	text, err := readEmail(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Email Metadata:\nFrom: Adjuster <adj@carrier.example>\nTo: intake@example.com\n")
	assert.Contains(t, text, "Subject: Referral for José\n")
	assert.Contains(t, text, "Date: Mon, 2 Mar 2026 10:00:00 -0500\n\nEmail Body:\n")
	assert.Contains(t, text, "Please schedule an MRI.")
}

func TestReadEmail_MultipartPlainOnly(t *testing.T) {
	raw := strings.Join([]string{
		"From: adj@carrier.example",
		"Subject: Order",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		`Content-Type: multipart/alternative; boundary="inner"`,
		"",
		"--inner",
		"Content-Type: text/plain; charset=iso-8859-1",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Patient: Jos=E9 Garc=EDa",
		"--inner",
		"Content-Type: text/html",
		"",
		"<p>ignored</p>",
		"--inner--",
		"--outer",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: base64",
		"",
		"Q1BUOiA3MzIyMQ==",
		"--outer",
		"Content-Type: application/pdf",
		"Content-Transfer-Encoding: base64",
		"",
		"JVBERi0xLjQ=",
		"--outer--",
		"",
	}, "\r\n")
	path := writeFile(t, t.TempDir(), "order.eml", raw)

	text, err := readEmail(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Patient: José García")
	assert.Contains(t, text, "CPT: 73221")
	assert.NotContains(t, text, "ignored")
	assert.NotContains(t, text, "JVBERi0")
}

func TestReadEmail_NotAnEmail(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.eml", "no header separator here")
	_, err := readEmail(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intake: parse email")
}

func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "referral.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReadDocx(t *testing.T) {
	path := writeDocx(t, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Patient: </w:t></w:r><w:r><w:t>Jane Roe</w:t></w:r></w:p>
    <w:p><w:r><w:t>CPT</w:t><w:tab/><w:t>73221</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := readDocx(path)
	require.NoError(t, err)
	assert.Equal(t, "Patient: Jane Roe\nCPT\t73221\n", text)
}

func TestReadDocx_MissingDocumentPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	_, err = readDocx(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no word/document.xml")
}

func TestReadDocx_NotAZip(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fake.docx", "plain text")
	_, err := readDocx(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intake: open docx")
}
