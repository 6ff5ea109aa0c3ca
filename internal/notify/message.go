package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Simplici0/primeestate/internal/pricing"
)

const unknownUser = "Unknown"

// Report is a submitted calculation as seen by the notification side.
// Breakdown must be the value the user was shown; it is never recomputed here.
type Report struct {
	UserEmail string
	UserID    string
	Input     pricing.Input
	Breakdown pricing.Breakdown
	At        time.Time
}

// Message is a formatted notification ready for a Sender.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

type line struct {
	Label  string
	Amount string
}

type reportView struct {
	UserEmail       string
	UserID          string
	At              string
	Price           string
	PropertyType    string
	Region          string
	IncludeMortgage string
	TaxRate         string
	Fees            []line
	TotalCosts      string
	TotalPurchase   string
	CostShare       string
}

var reportHTML = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; }
.header { background: #1e3a5f; color: white; padding: 20px; text-align: center; }
.section { margin: 20px; border: 1px solid #e0e0e0; border-radius: 8px; }
.section-header { background: #f5f5f5; padding: 12px; font-weight: bold; }
table { width: 100%; border-collapse: collapse; }
td { padding: 8px 12px; border-bottom: 1px solid #f0f0f0; }
td.amount { text-align: right; }
.total { background: #e8f5e8; font-weight: bold; }
.highlight { background: #1e3a5f; color: white; padding: 15px; text-align: center; font-weight: bold; }
</style>
</head>
<body>
<div class="header">
<h1>Spanish Property Calculation Report</h1>
<p>New calculation submitted from your property calculator</p>
</div>
<div class="section">
<div class="section-header">Client Information</div>
<table>
<tr><td>Email:</td><td class="amount">{{.UserEmail}}</td></tr>
<tr><td>User ID:</td><td class="amount">{{.UserID}}</td></tr>
<tr><td>Calculation Date:</td><td class="amount">{{.At}}</td></tr>
</table>
</div>
<div class="section">
<div class="section-header">Property Details</div>
<table>
<tr><td>Property Price:</td><td class="amount">{{.Price}}</td></tr>
<tr><td>Property Type:</td><td class="amount">{{.PropertyType}}</td></tr>
<tr><td>Region:</td><td class="amount">{{.Region}}</td></tr>
<tr><td>Include Mortgage:</td><td class="amount">{{.IncludeMortgage}}</td></tr>
<tr><td>Tax Rate:</td><td class="amount">{{.TaxRate}}</td></tr>
</table>
</div>
<div class="section">
<div class="section-header">Cost Breakdown</div>
<table>
{{range .Fees}}<tr><td>{{.Label}}:</td><td class="amount">{{.Amount}}</td></tr>
{{end}}</table>
</div>
<div class="section">
<div class="section-header">Summary</div>
<table>
<tr><td>Property Price:</td><td class="amount">{{.Price}}</td></tr>
<tr><td>Total Additional Costs:</td><td class="amount">{{.TotalCosts}}</td></tr>
<tr class="total"><td>Total Purchase Price:</td><td class="amount">{{.TotalPurchase}}</td></tr>
</table>
</div>
<div class="highlight">Additional costs represent {{.CostShare}}% of the property price</div>
<p style="text-align: center; color: #666; font-size: 14px;">This email was automatically generated from your Spanish Property Calculator</p>
</body>
</html>
`))

// NewCalculationMessage formats the calculation report for r. From and To are left for the Notifier.
func NewCalculationMessage(r Report) (Message, error) {
	view := newReportView(r)

	var html bytes.Buffer
	if err := reportHTML.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render calculation report: %w", err)
	}

	return Message{
		Subject: fmt.Sprintf("New Property Calculation - %s (%s)", view.Price, view.UserEmail),
		HTML:    html.String(),
		Text:    plainText(view),
	}, nil
}

func newReportView(r Report) reportView {
	b := r.Breakdown

	fees := []line{
		{Label: "Purchase Taxes", Amount: pricing.FormatEUR(b.PurchaseTaxes)},
		{Label: "Notary Fees", Amount: pricing.FormatEUR(b.NotaryFees)},
		{Label: "Registry Fees", Amount: pricing.FormatEUR(b.RegistryFees)},
		{Label: "Legal Fees", Amount: pricing.FormatEUR(b.LegalFees)},
		{Label: "Administrative Fees", Amount: pricing.FormatEUR(b.AdminFees)},
	}
	if b.CommoditiesFees.IsPositive() {
		fees = append(fees, line{Label: "Connecting Commodities", Amount: pricing.FormatEUR(b.CommoditiesFees)})
	}
	if b.MortgageFees.IsPositive() {
		fees = append(fees, line{Label: "Mortgage Arrangement Fees", Amount: pricing.FormatEUR(b.MortgageFees)})
	}

	mortgage := "No"
	if r.Input.IncludeMortgage {
		mortgage = "Yes"
	}

	return reportView{
		UserEmail:       orUnknown(r.UserEmail),
		UserID:          orUnknown(r.UserID),
		At:              r.At.UTC().Format("2006-01-02 15:04 MST"),
		Price:           pricing.FormatEUR(b.Price),
		PropertyType:    r.Input.PropertyType.Label(),
		Region:          r.Input.Region.Name(),
		IncludeMortgage: mortgage,
		TaxRate:         pricing.FormatRate(b.TaxRate),
		Fees:            fees,
		TotalCosts:      pricing.FormatEUR(b.TotalCosts),
		TotalPurchase:   pricing.FormatEUR(b.TotalPurchase),
		CostShare:       b.CostShare().StringFixed(1),
	}
}

func plainText(v reportView) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Email:\t%s\n", v.UserEmail)
	fmt.Fprintf(w, "User ID:\t%s\n", v.UserID)
	fmt.Fprintf(w, "Calculation Date:\t%s\n", v.At)
	fmt.Fprintf(w, "Property Price:\t%s\n", v.Price)
	fmt.Fprintf(w, "Property Type:\t%s\n", v.PropertyType)
	fmt.Fprintf(w, "Region:\t%s\n", v.Region)
	fmt.Fprintf(w, "Include Mortgage:\t%s\n", v.IncludeMortgage)
	fmt.Fprintf(w, "Tax Rate:\t%s\n", v.TaxRate)
	for _, fee := range v.Fees {
		fmt.Fprintf(w, "%s:\t%s\n", fee.Label, fee.Amount)
	}
	fmt.Fprintf(w, "Total Additional Costs:\t%s\n", v.TotalCosts)
	fmt.Fprintf(w, "Total Purchase Price:\t%s\n", v.TotalPurchase)
	_ = w.Flush()

	fmt.Fprintf(&sb, "\nAdditional costs represent %s%% of the property price\n", v.CostShare)
	return sb.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownUser
	}
	return s
}
