// Package prescription renders a printable prescription document for an
// appointment as a standalone HTML page.
package prescription

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/clinicdesk/dashboard/internal/appointments"
)

const (
	noTests        = "No tests recommended."
	noInstructions = "No specific instructions."
)

// Document carries everything the print view needs.
type Document struct {
	ClinicName string
	DoctorName string
	Patient    appointments.Appointment
	IssuedAt   time.Time
}

var printTemplate = template.Must(template.New("prescription").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Prescription - {{.Patient.Name}}</title>
<style>
  body { font-family: Georgia, serif; max-width: 720px; margin: 24px auto; color: #1a1a1a; }
  header { border-bottom: 2px solid #1a1a1a; padding-bottom: 8px; margin-bottom: 16px; }
  h1 { font-size: 22px; margin: 0; }
  .meta { display: flex; justify-content: space-between; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; margin: 12px 0; }
  th, td { border: 1px solid #999; padding: 6px 10px; text-align: left; font-size: 14px; }
  th { background: #f0f0f0; }
  section { margin-bottom: 16px; }
  .signature { margin-top: 64px; text-align: right; }
  .signature .line { display: inline-block; border-top: 1px solid #1a1a1a; padding-top: 4px; min-width: 200px; }
  @media print { .no-print { display: none; } }
</style>
</head>
<body>
<header>
  <h1>{{.ClinicName}}</h1>
  {{if .DoctorName}}<p>{{.DoctorName}}</p>{{end}}
</header>
<div class="meta">
  <div>
    <p><strong>Patient:</strong> {{.Patient.Name}}{{if .Patient.Age}} ({{.Patient.Age}} years){{end}}</p>
    {{if .Patient.Address}}<p><strong>Address:</strong> {{.Patient.Address}}</p>{{end}}
    {{if .Patient.Mobile}}<p><strong>Mobile:</strong> {{.Patient.Mobile}}</p>{{end}}
  </div>
  <div>
    <p><strong>Date:</strong> {{.Patient.Date}} {{.Patient.Time}}</p>
    {{if .Patient.TrackingID}}<p><strong>Tracking ID:</strong> {{.Patient.TrackingID}}</p>{{end}}
    {{if .Issued}}<p><strong>Issued:</strong> {{.Issued}}</p>{{end}}
  </div>
</div>
<section>
  <h2>Medicines</h2>
  {{if .Medicines}}
  <table>
    <thead><tr><th>Medicine</th><th>Dosage</th><th>Instructions</th></tr></thead>
    <tbody>
    {{range .Medicines}}<tr><td>{{.Name}}</td><td>{{.Dosage}}</td><td>{{.Instructions}}</td></tr>
    {{end}}</tbody>
  </table>
  {{else}}<p>No medicines prescribed.</p>{{end}}
</section>
<section>
  <h2>Recommended Tests</h2>
  {{if .Tests}}<ul>{{range .Tests}}<li>{{.}}</li>{{end}}</ul>
  {{else}}<p>{{.NoTests}}</p>{{end}}
</section>
<section>
  <h2>General Instructions</h2>
  <p>{{if .General}}{{.General}}{{else}}{{.NoInstructions}}{{end}}</p>
</section>
<div class="signature">
  <span class="line">{{if .DoctorName}}{{.DoctorName}}{{else}}Doctor's Signature{{end}}</span>
</div>
<p class="no-print"><button onclick="window.print()">Print</button></p>
<script>window.addEventListener("load", function () { window.print(); });</script>
</body>
</html>
`))

type printData struct {
	ClinicName     string
	DoctorName     string
	Issued         string
	Patient        appointments.Appointment
	Medicines      []appointments.Medicine
	Tests          []string
	General        string
	NoTests        string
	NoInstructions string
}

// Render writes the printable HTML document to w. The appointment must carry
// a prescription.
func Render(w io.Writer, doc Document) error {
	if doc.Patient.Prescription == nil {
		return fmt.Errorf("prescription: appointment %s has no prescription", doc.Patient.ID)
	}
	if doc.ClinicName == "" {
		doc.ClinicName = "ClinicDesk"
	}

	issued := ""
	if !doc.IssuedAt.IsZero() {
		issued = doc.IssuedAt.Format("02 Jan 2006")
	}

	p := doc.Patient.Prescription
	data := printData{
		ClinicName:     doc.ClinicName,
		DoctorName:     doc.DoctorName,
		Issued:         issued,
		Patient:        doc.Patient,
		Medicines:      p.Medicines,
		Tests:          p.Tests,
		General:        p.GeneralInstructions,
		NoTests:        noTests,
		NoInstructions: noInstructions,
	}
	if err := printTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("prescription: failed to render document: %w", err)
	}
	return nil
}
