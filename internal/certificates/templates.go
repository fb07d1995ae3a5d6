package certificates

import (
	"fmt"

	"ce_platform/internal/config"
	"ce_platform/internal/models"
)

func renderCertificateEmail(brand config.Branding, cert models.Certificate) (subject, html, text string) {
	subject = fmt.Sprintf("Your %s Certificate of Completion", brand.SchoolName)

	holder := cert.HolderName
	if holder == "" {
		holder = "Certificate Recipient"
	}

	courseDate := cert.IssuedAt.Format("January 2, 2006")
	if cert.CourseDate != nil {
		courseDate = cert.CourseDate.Format("January 2, 2006")
	}

	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #0d9488 0%%, #7c3aed 100%%); color: white; padding: 30px; text-align: center; border-radius: 8px 8px 0 0;">
    <h1 style="margin: 0; font-size: 28px; font-weight: bold;">%s</h1>
    <p style="margin: 5px 0 0 0; opacity: 0.9;">%s</p>
  </div>
  <div style="background: white; padding: 30px; border: 1px solid #e5e7eb; border-top: none; border-radius: 0 0 8px 8px;">
    <h2 style="color: #1f2937; margin-top: 0;">Congratulations, %s!</h2>
    <p>Your certificate of completion for <strong>%s</strong> is attached to this email.</p>
    <ul style="color: #1f2937;">
      <li>Certificate number: %s</li>
      <li>CE hours: %g</li>
      <li>Session date: %s</li>
    </ul>
    <p>Keep this certificate for your continuing-education records.</p>
    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb; font-size: 14px; color: #6b7280;">
      <p>For assistance, contact us at <a href="mailto:%s" style="color: #0d9488;">%s</a></p>
      <p style="margin-top: 20px;"><strong>%s</strong><br>%s</p>
    </div>
  </div>
</div>`,
		brand.SchoolName, brand.Tagline,
		holder, cert.CourseTitle,
		cert.Number, cert.CEHours, courseDate,
		brand.SupportEmail, brand.SupportEmail,
		brand.SchoolName, brand.Address,
	)

	text = fmt.Sprintf(`Congratulations, %s!

Your certificate of completion for %s is attached to this email.

Certificate number: %s
CE hours: %g
Session date: %s

Keep this certificate for your continuing-education records.

For assistance, contact us at %s

%s
%s`,
		holder, cert.CourseTitle,
		cert.Number, cert.CEHours, courseDate,
		brand.SupportEmail, brand.SchoolName, brand.Address)

	return subject, html, text
}
