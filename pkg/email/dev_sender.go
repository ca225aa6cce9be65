package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes messages to a directory instead of delivering them.
type DevSender struct {
	dir string
}

// NewDevSender creates a file-backed sender for local development.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir}
}

// SendEmail writes the message body as an HTML file named by timestamp
// and tag.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating directory: %v", ErrFailedToSend, err)
	}

	name := params.Tag
	if name == "" {
		name = params.Subject
	}
	filename := fmt.Sprintf("%s_%s.html", time.Now().Format("2006_01_02_150405"), safeFilename(name))

	if err := os.WriteFile(filepath.Join(d.dir, filename), []byte(params.BodyHTML), 0o644); err != nil {
		return fmt.Errorf("%w: writing file: %v", ErrFailedToSend, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func safeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}

var _ EmailSender = (*DevSender)(nil)
