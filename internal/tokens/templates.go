package tokens

import (
	"fmt"

	"ce_platform/internal/config"
	"ce_platform/internal/models"
)

// renderTokenEmail produces the subject and both body encodings for a
// redemption email. Copy mirrors the transactional mail the platform has
// always sent; the link expiry wording assumes the one-hour token TTL.
func renderTokenEmail(brand config.Branding, purpose models.TokenPurpose, link string) (subject, html, text string) {
	var title, intro, action string

	switch purpose {
	case models.PurposeMagicLink:
		subject = fmt.Sprintf("Sign In to Your %s Account", brand.SchoolName)
		title = "Sign In to Your Account"
		intro = fmt.Sprintf("You requested a magic link to sign in to your %s account.", brand.SchoolName)
		action = "Sign In Now"
	default:
		subject = fmt.Sprintf("Reset Your %s Password", brand.SchoolName)
		title = "Reset Your Password"
		intro = fmt.Sprintf("You requested a password reset for your %s account.", brand.SchoolName)
		action = "Reset Your Password"
	}

	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #0d9488 0%%, #7c3aed 100%%); color: white; padding: 30px; text-align: center; border-radius: 8px 8px 0 0;">
    <h1 style="margin: 0; font-size: 28px; font-weight: bold;">%s</h1>
    <p style="margin: 5px 0 0 0; opacity: 0.9;">%s</p>
  </div>
  <div style="background: white; padding: 30px; border: 1px solid #e5e7eb; border-top: none; border-radius: 0 0 8px 8px;">
    <h2 style="color: #1f2937; margin-top: 0;">%s</h2>
    <p>Hello,</p>
    <p>%s</p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background: linear-gradient(135deg, #0d9488 0%%, #7c3aed 100%%); color: white; padding: 15px 30px; text-decoration: none; border-radius: 6px; font-weight: bold; display: inline-block; font-size: 16px;">%s</a>
    </div>
    <p>If the button doesn't work, copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #0d9488;">%s</p>
    <p>This link will expire in 1 hour for security reasons.</p>
    <p>If you didn't request this, please ignore this email.</p>
    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb; font-size: 14px; color: #6b7280;">
      <p>For assistance, contact us at <a href="mailto:%s" style="color: #0d9488;">%s</a></p>
      <p style="margin-top: 20px;"><strong>%s</strong><br>%s</p>
    </div>
  </div>
</div>`,
		brand.SchoolName, brand.Tagline,
		title, intro, link, action, link,
		brand.SupportEmail, brand.SupportEmail,
		brand.SchoolName, brand.Address,
	)

	text = fmt.Sprintf(`%s

Hello,

%s

Click this link: %s

This link will expire in 1 hour for security reasons.

If you didn't request this, please ignore this email.

For assistance, contact us at %s

%s
%s`,
		subject, intro, link, brand.SupportEmail, brand.SchoolName, brand.Address)

	return subject, html, text
}
