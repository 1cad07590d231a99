// Package confirm generates the payment confirmation letter sent to an
// agent when a billing charge completes.
package confirm

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
)

// Generator produces a confirmation message for a charged lead. A nil
// message with nil error means the generator declined (e.g. not
// applicable); callers treat the message as optional either way.
type Generator interface {
	Generate(ctx context.Context, l lead.Lead) (string, error)
}

const autopayDiscount = 10.00

const nextMonthMarkup = 15.00

var letter = template.Must(template.New("confirmation").Parse(`Dear {{.ClientName}},

Thank you for choosing {{.Provider}}.

We're writing to confirm that a payment of {{.Amount}} has been successfully charged to your account.

Beginning next month, your monthly bill will be {{.NextMonth}}, which reflects a $10.00 monthly discount applied for setting up AutoPay through {{.LLC}}, an authorized {{.Provider}} retailer.

If you have any questions regarding your billing, AutoPay setup, or applied discount, our team is always here to assist you.

Thank you for choosing {{.Provider}}. We look forward to serving you.

Warm regards,
Customer Support Team
{{.Provider}}`))

// TemplateGenerator renders the confirmation letter locally.
type TemplateGenerator struct{}

var _ Generator = TemplateGenerator{}

// NewTemplateGenerator returns the local letter generator.
func NewTemplateGenerator() TemplateGenerator {
	return TemplateGenerator{}
}

// Generate renders the letter for a lead. The next-month figure is the
// charged amount plus a fixed markup.
func (TemplateGenerator) Generate(_ context.Context, l lead.Lead) (string, error) {
	data := struct {
		ClientName string
		Provider   string
		Amount     string
		NextMonth  string
		LLC        string
	}{
		ClientName: fallback(l.ClientName, "Valued Customer"),
		Provider:   fallback(l.Provider, "Service Provider"),
		Amount:     displayAmount(l),
		NextMonth:  fmt.Sprintf("$%.2f", l.ChargeAmount+nextMonthMarkup),
		LLC:        fallback(l.LLC, "Visionary Pathways"),
	}

	var b strings.Builder
	if err := letter.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func displayAmount(l lead.Lead) string {
	display := strings.TrimSpace(l.ChargeDisplay)
	if display == "" {
		return fmt.Sprintf("$%.2f", l.ChargeAmount)
	}
	if !strings.Contains(display, "$") {
		return "$" + display
	}
	return display
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
