package metadata

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"os"
	"strings"
)

// mailExtractor reads RFC 822 headers from .eml files.
type mailExtractor struct{}

func (mailExtractor) Extract(ctx context.Context, sourceMimetype, source string) (Fields, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open message: %w", err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	h := msg.Header
	fields := Fields{
		"subject":   decodeHeader(h.Get("Subject")),
		"from":      addressList(h, "From"),
		"to":        addressList(h, "To"),
		"cc":        addressList(h, "Cc"),
		"messageId": strings.Trim(h.Get("Message-Id"), "<>"),
	}
	if d, err := h.Date(); err == nil {
		fields["sentDate"] = d.UTC().Format("2006-01-02T15:04:05Z")
	}
	return fields, nil
}

func (mailExtractor) Mapping() map[string][]string {
	return map[string][]string{
		"subject":   {"imap:messageSubject", "cm:title"},
		"from":      {"imap:messageFrom", "cm:originator"},
		"to":        {"imap:messageTo", "cm:addressees"},
		"cc":        {"imap:messageCc"},
		"messageId": {"imap:messageId"},
		"sentDate":  {"imap:dateSent", "cm:sentdate"},
	}
}

func decodeHeader(s string) string {
	dec := new(mime.WordDecoder)
	if out, err := dec.DecodeHeader(s); err == nil {
		return out
	}
	return s
}

func addressList(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		if raw := strings.TrimSpace(h.Get(key)); raw != "" {
			return []string{raw}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.String())
	}
	return out
}
