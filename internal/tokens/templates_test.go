package tokens

import (
	"strings"
	"testing"

	"ce_platform/internal/config"
	"ce_platform/internal/models"
)

func testBrand() config.Branding {
	return config.Branding{
		SchoolName:   "RealEdu",
		Tagline:      "Iowa Real Estate CE Provider",
		SupportEmail: "info@realedu.example",
		Address:      "123 Main St",
	}
}

func TestRenderPasswordResetEmail(t *testing.T) {
	link := "https://realedu.example/reset-password?token=abc&email=jane%40example.com"

	subject, html, text := renderTokenEmail(testBrand(), models.PurposePasswordReset, link)

	if subject != "Reset Your RealEdu Password" {
		t.Errorf("subject = %q", subject)
	}
	for name, body := range map[string]string{"html": html, "text": text} {
		if !strings.Contains(body, link) {
			t.Errorf("%s body missing redemption link", name)
		}
		if !strings.Contains(body, "expire in 1 hour") {
			t.Errorf("%s body missing expiry wording", name)
		}
	}
}

func TestRenderMagicLinkEmail(t *testing.T) {
	link := "https://realedu.example/magic-login?token=abc&email=jane%40example.com"

	subject, html, _ := renderTokenEmail(testBrand(), models.PurposeMagicLink, link)

	if subject != "Sign In to Your RealEdu Account" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(html, "Sign In Now") {
		t.Error("html body missing call to action")
	}
	if strings.Contains(html, "Reset Your Password") {
		t.Error("magic link email carries password reset copy")
	}
}
