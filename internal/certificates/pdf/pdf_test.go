package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sampleData() Data {
	return Data{
		CertificateNumber: "156-20260314-AB12",
		SchoolName:        "RealEdu",
		Instructor:        "Pat Morrow",
		CourseTitle:       "Fair Housing Essentials",
		CourseNumber:      "156-4211-E",
		CourseDate:        "March 14, 2026",
		HolderName:        "Sam Reed",
		CEHours:           4,
		IssuedAt:          time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderProducesPDF(t *testing.T) {
	doc, err := Render(sampleData())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF-")) {
		t.Fatal("output is not a PDF document")
	}
}

func TestRenderDeterministic(t *testing.T) {
	a, err := Render(sampleData())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := Render(sampleData())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same input produced different documents")
	}
}

func TestRenderPlaceholders(t *testing.T) {
	doc, err := Render(Data{IssuedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(doc) == 0 {
		t.Fatal("empty document")
	}
}

func TestPlaceholderLines(t *testing.T) {
	if got := certificateNumberLine(""); got != "Certificate #N/A" {
		t.Errorf("certificateNumberLine(\"\") = %q", got)
	}
	if got := certificateNumberLine("   "); got != "Certificate #N/A" {
		t.Errorf("certificateNumberLine(blank) = %q", got)
	}
	if got := certificateNumberLine("156-20260314-AB12"); got != "Certificate #156-20260314-AB12" {
		t.Errorf("certificateNumberLine = %q", got)
	}

	if got := holderLine(""); got != "Certificate Recipient" {
		t.Errorf("holderLine(\"\") = %q", got)
	}
	if got := holderLine("  Sam Reed  "); got != "Sam Reed" {
		t.Errorf("holderLine = %q", got)
	}

	if got := courseNumberLine(""); got != "Course #N/A" {
		t.Errorf("courseNumberLine(\"\") = %q", got)
	}
	if got := courseNumberLine("156-4211-E"); got != "Course #156-4211-E" {
		t.Errorf("courseNumberLine = %q", got)
	}
}

func TestRenderLongHolderName(t *testing.T) {
	d := sampleData()
	d.HolderName = strings.Repeat("Maximiliana Constance Worthington-Fairweather ", 2)

	doc, err := Render(d)
	if err != nil {
		t.Fatalf("Render with long holder name: %v", err)
	}
	if len(doc) == 0 {
		t.Fatal("empty document")
	}
}

func TestRenderLongCourseTitle(t *testing.T) {
	d := sampleData()
	d.CourseTitle = "Advanced Topics in Iowa Residential Real Estate Disclosure, Agency Relationships and Continuing Education Compliance"

	doc, err := Render(d)
	if err != nil {
		t.Fatalf("Render with long course title: %v", err)
	}

	short, err := Render(sampleData())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if bytes.Equal(doc, short) {
		t.Error("long title produced the same layout as the short one")
	}
}
