// Package pdf renders completion certificates: one landscape A4 page,
// fixed layout, pure function of its input. Missing or malformed fields
// are papered over with placeholder text, never rejected.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type Data struct {
	CertificateNumber string
	SchoolName        string
	Instructor        string
	CourseTitle       string
	CourseNumber      string
	CourseDate        string
	HolderName        string
	CEHours           float64
	IssuedAt          time.Time
}

const (
	titleWidth  = 180
	holderWidth = 160
	lineHeight  = 8
)

// Render produces the complete PDF document bytes. Output is
// deterministic for identical input: the document creation date is taken
// from IssuedAt, not the wall clock, whenever IssuedAt is set.
func Render(d Data) ([]byte, error) {
	const op = "certificates.pdf.Render"

	issued := d.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetCreationDate(issued)
	doc.SetModificationDate(issued)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 36)
	doc.SetTextColor(0, 128, 128)
	centerText(doc, 50, "Certificate of Completion")

	// Course title wraps; everything below shifts down with it so long
	// titles never collide with the course-number line.
	doc.SetFont("Helvetica", "", 24)
	doc.SetTextColor(50, 50, 50)
	titleLines := doc.SplitText(d.CourseTitle, titleWidth)
	titleY := 68.0
	if len(titleLines) > 1 {
		titleY = 65.0
	}
	centerLines(doc, titleY, titleLines)

	courseInfoY := titleY + float64(len(titleLines))*lineHeight + lineHeight

	centerText(doc, courseInfoY, courseNumberLine(d.CourseNumber))

	courseDate := formatDate(issued)
	if strings.TrimSpace(d.CourseDate) != "" {
		courseDate = d.CourseDate
	}
	centerText(doc, courseInfoY+lineHeight, "Session Date: "+courseDate)

	doc.SetFont("Helvetica", "B", 26)
	holderLines := doc.SplitText(holderLine(d.HolderName), holderWidth)
	holderY := courseInfoY + 25
	centerLines(doc, holderY, holderLines)

	doc.SetFont("Helvetica", "", 14)
	certNumberY := holderY + float64(len(holderLines))*lineHeight + lineHeight

	centerText(doc, certNumberY, certificateNumberLine(d.CertificateNumber))

	doc.SetFont("Helvetica", "", 16)
	centerText(doc, certNumberY+12, "CE Hours: "+strconv.FormatFloat(d.CEHours, 'f', -1, 64))
	centerText(doc, certNumberY+24, "Issued: "+formatDate(issued))

	if d.Instructor != "" {
		doc.SetFont("Helvetica", "B", 16)
		centerText(doc, certNumberY+36, d.Instructor)
		doc.SetFont("Helvetica", "", 12)
		centerText(doc, certNumberY+42, "Instructor")
	}

	doc.SetFont("Helvetica", "", 10)
	centerText(doc, 200, d.SchoolName)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}

// The three display lines below paper over missing input with
// placeholder text; rendering never rejects incomplete data.

func courseNumberLine(courseNumber string) string {
	if strings.TrimSpace(courseNumber) == "" {
		return "Course #N/A"
	}
	return "Course #" + courseNumber
}

func holderLine(holderName string) string {
	holder := strings.TrimSpace(holderName)
	if holder == "" {
		return "Certificate Recipient"
	}
	return holder
}

func certificateNumberLine(certificateNumber string) string {
	if strings.TrimSpace(certificateNumber) == "" {
		return "Certificate #N/A"
	}
	return "Certificate #" + certificateNumber
}

func centerText(doc *gofpdf.Fpdf, y float64, txt string) {
	doc.SetXY(0, y)
	doc.CellFormat(297, lineHeight, txt, "", 0, "C", false, 0, "")
}

func centerLines(doc *gofpdf.Fpdf, y float64, lines []string) {
	for i, line := range lines {
		centerText(doc, y+float64(i)*lineHeight, line)
	}
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
