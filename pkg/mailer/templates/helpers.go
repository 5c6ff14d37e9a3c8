package templates

import (
	"strings"
	"time"
)

// Brand holds the company details printed in every email.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
}

// Option pattern
type Option func(*EmailData)

func WithVerifyURL(url string) Option { return func(d *EmailData) { d.VerifyURL = url } }
func WithResetURL(url string) Option  { return func(d *EmailData) { d.ResetURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04") + " UTC"
	}
}

// NewBaseEmailData fills the brand fields, then applies opts.
func NewBaseEmailData(b Brand, typ string, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           strings.TrimSpace(name),
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		AppName:        b.AppName,

		LogoURL:    b.LogoURL,
		SupportURL: b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(b Brand, name, email, verifyURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithVerifyURL(verifyURL)}, opts...)
	return ToMap(NewBaseEmailData(b, VerifyEmail, name, email, email, opts...))
}

func NewForgotPasswordData(b Brand, name, email, resetURL string, expiresAt time.Time, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(resetURL), WithExpiresAt(expiresAt)}, opts...)
	return ToMap(NewBaseEmailData(b, ForgotPassword, name, email, email, opts...))
}
