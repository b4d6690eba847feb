package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadAcceptedEmailData struct {
	baseEmailData
	LeadAccepted
	RatingFormatted string
}

type subscriptionActivatedEmailData struct {
	baseEmailData
	SubscriptionActivated
}

func renderLeadAccepted(d LeadAccepted) (subject, body string, err error) {
	subject = fmt.Sprintf(subjectLeadAcceptedFmt, d.FreelancerName, d.LeadTitle)
	rating := ""
	if d.FreelancerRating > 0 {
		rating = fmt.Sprintf("%.1f / 5", d.FreelancerRating)
	}
	body, err = renderEmailTemplate("lead_accepted.html", leadAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your request was accepted",
			Heading:  "A professional is on the way",
			CTALabel: "View request",
			CTAURL:   d.LeadURL,
		},
		LeadAccepted:    d,
		RatingFormatted: rating,
	})
	return subject, body, err
}

func renderSubscriptionActivated(d SubscriptionActivated) (subject, body string, err error) {
	subject = fmt.Sprintf(subjectSubscriptionActivatedFmt, d.PlanLabel)
	body, err = renderEmailTemplate("subscription_activated.html", subscriptionActivatedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Plan activated",
			Heading:  "Your plan is active",
			CTALabel: "Open dashboard",
			CTAURL:   d.DashboardURL,
		},
		SubscriptionActivated: d,
	})
	return subject, body, err
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
