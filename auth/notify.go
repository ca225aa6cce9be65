package auth

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/identikit/identikit/pkg/email"
	"github.com/identikit/identikit/pkg/logger"
)

// Notifier composes and delivers the account lifecycle emails. All
// composition is inline HTML; anything heavier belongs in a template
// system this service does not need.
type Notifier struct {
	sender email.EmailSender
	app    string
	log    *slog.Logger
}

// NotifierOption configures a Notifier during construction.
type NotifierOption func(*Notifier)

// WithAppName sets the product name used in subjects and bodies.
func WithAppName(name string) NotifierOption {
	return func(n *Notifier) { n.app = name }
}

// WithNotifierLogger sets the notifier's logger.
func WithNotifierLogger(log *slog.Logger) NotifierOption {
	return func(n *Notifier) { n.log = log }
}

// NewNotifier creates a notifier backed by the given sender.
func NewNotifier(sender email.EmailSender, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		sender: sender,
		app:    "Identikit",
		log:    logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendVerificationOTP delivers the email verification code.
func (n *Notifier) SendVerificationOTP(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		`<p>Welcome to %s!</p>
<p>Your email verification code is:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires in 10 minutes. If you did not create an account, ignore this message.</p>`,
		html.EscapeString(n.app), html.EscapeString(code),
	)
	return n.send(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("%s: verify your email", n.app),
		BodyHTML: body,
		Tag:      "email-verification",
	})
}

// SendResetOTP delivers the password reset code.
func (n *Notifier) SendResetOTP(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		`<p>A password reset was requested for your %s account.</p>
<p>Your reset code is:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires in 10 minutes. If you did not request a reset, ignore this message and your password will remain unchanged.</p>`,
		html.EscapeString(n.app), html.EscapeString(code),
	)
	return n.send(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("%s: password reset code", n.app),
		BodyHTML: body,
		Tag:      "password-reset",
	})
}

// SendPasswordChanged delivers the confirmation after a successful
// password change or reset.
func (n *Notifier) SendPasswordChanged(ctx context.Context, to string) error {
	body := fmt.Sprintf(
		`<p>The password for your %s account was just changed.</p>
<p>If this was not you, reset your password immediately.</p>`,
		html.EscapeString(n.app),
	)
	return n.send(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("%s: your password was changed", n.app),
		BodyHTML: body,
		Tag:      "password-changed",
	})
}

// SendUsernameReminder delivers the account's username to its email.
func (n *Notifier) SendUsernameReminder(ctx context.Context, to, username string) error {
	body := fmt.Sprintf(
		`<p>You asked for a reminder of your %s username.</p>
<p>Your username is: <strong>%s</strong></p>`,
		html.EscapeString(n.app), html.EscapeString(username),
	)
	return n.send(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("%s: your username", n.app),
		BodyHTML: body,
		Tag:      "username-reminder",
	})
}

// SendGeneratedPassword delivers the password generated for an account
// created through an external identity provider.
func (n *Notifier) SendGeneratedPassword(ctx context.Context, to, password string) error {
	body := fmt.Sprintf(
		`<p>Your %s account was created through a linked sign-in provider.</p>
<p>A password was generated so you can also sign in directly:</p>
<h2>%s</h2>
<p>We recommend changing it after your first direct sign-in.</p>`,
		html.EscapeString(n.app), html.EscapeString(password),
	)
	return n.send(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("%s: your account password", n.app),
		BodyHTML: body,
		Tag:      "generated-password",
	})
}

func (n *Notifier) send(ctx context.Context, params email.SendEmailParams) error {
	if err := n.sender.SendEmail(ctx, params); err != nil {
		n.log.Error("email delivery failed",
			logger.Error(err),
			logger.Email(params.SendTo),
			slog.String("tag", params.Tag),
			logger.Component("notifier"),
		)
		return err
	}
	return nil
}
