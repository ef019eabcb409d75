package emailalert

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// htmlBody parses a raw RFC822 message and returns its text/html part,
// decoded from whatever transfer encoding the sender used. Falls back to
// an empty string when the message carries no HTML.
func htmlBody(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(msg.Body, 10<<20))
	_, html := textParts(msg.Header, body)
	return html
}

func textParts(h mail.Header, body []byte) (plain, html string) {
	cte := strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))

	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return string(decodeCTE(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return string(decodeCTE(body, cte)), ""
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			partCTE := strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding")))
			pMedia, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			pMedia = strings.ToLower(pMedia)

			b, _ := io.ReadAll(io.LimitReader(p, 10<<20))
			b = decodeCTE(b, partCTE)

			switch {
			case strings.HasPrefix(pMedia, "multipart/"):
				pl, ht := textParts(mail.Header(p.Header), b)
				if len(pl) > len(plain) {
					plain = pl
				}
				if len(ht) > len(html) {
					html = ht
				}
			case strings.HasPrefix(pMedia, "text/plain"):
				if len(b) > len(plain) {
					plain = string(b)
				}
			case strings.HasPrefix(pMedia, "text/html"):
				if len(b) > len(html) {
					html = string(b)
				}
			}
		}
		return plain, html
	}

	s := decodeCTE(body, cte)
	if strings.HasPrefix(mediaType, "text/html") {
		return "", string(s)
	}
	return string(s), ""
}

func decodeCTE(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 10<<20))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 10<<20))
		return out
	default:
		return b
	}
}
