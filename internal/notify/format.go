package notify

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"leadline-platform/internal/classify"
	"leadline-platform/internal/leads"
)

// Message formatting for the two delivery channels. The SMS body is plain
// text with emoji markers; the email fallback is a small self-contained
// HTML document so it renders without external assets.

func urgencyMarker(u classify.Urgency) string {
	switch u {
	case classify.UrgencyHigh:
		return "🚨"
	case classify.UrgencyMedium:
		return "⚠️"
	default:
		return "📞"
	}
}

func urgencyColor(u classify.Urgency) string {
	switch u {
	case classify.UrgencyHigh:
		return "#dc2626"
	case classify.UrgencyMedium:
		return "#f59e0b"
	default:
		return "#10b981"
	}
}

// telDigits strips everything but digits and a leading plus for tel: links.
func telDigits(number string) string {
	var b strings.Builder
	for _, r := range number {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mapsLink(address string) string {
	return "https://maps.google.com/?q=" + url.QueryEscape(address)
}

// FormatSMS renders the operator-facing lead message.
func FormatSMS(lead leads.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s NEW LEAD\n\n", urgencyMarker(lead.Urgency))

	if len(lead.Flags) > 0 {
		b.WriteString(strings.Join(lead.Flags, " | "))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "👤 %s\n", lead.CallerName)
	fmt.Fprintf(&b, "📱 %s\n", lead.CallerNumber)
	fmt.Fprintf(&b, "📍 %s\n\n", lead.Address)

	fmt.Fprintf(&b, "🔧 PROBLEM:\n%s\n\n", lead.Problem)

	fmt.Fprintf(&b, "⏰ Callback within %s\n", classify.CallbackSLA(lead.Urgency))

	fmt.Fprintf(&b, "\n📞 Call: tel:%s", telDigits(lead.CallerNumber))
	fmt.Fprintf(&b, "\n🗺️ Maps: %s", mapsLink(lead.Address))
	if lead.RecordingURL != "" {
		fmt.Fprintf(&b, "\n🎵 Recording: %s", lead.RecordingURL)
	}

	fmt.Fprintf(&b, "\n\n📋 Call ID: %s", lead.CallID)

	return b.String()
}

// FormatEmailSubject is the fallback email subject line.
func FormatEmailSubject(lead leads.Summary) string {
	return fmt.Sprintf("URGENT: SMS Failed - New Lead from %s", lead.CallerName)
}

// FormatEmailHTML renders the fallback email body. It states explicitly
// that SMS delivery was exhausted.
func FormatEmailHTML(lead leads.Summary) string {
	color := urgencyColor(lead.Urgency)

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	fmt.Fprintf(&b, `<div style="background: %s; color: white; padding: 16px;"><h2 style="margin: 0;">🚨 SMS DELIVERY FAILED - New Lead Alert</h2></div>`, color)
	b.WriteString(`<div style="border: 1px solid #e5e7eb; padding: 24px;">`)

	if len(lead.Flags) > 0 {
		b.WriteString(`<div style="margin-bottom: 16px;">`)
		for _, flag := range lead.Flags {
			fmt.Fprintf(&b, `<span style="background: #fef3c7; color: #92400e; padding: 4px 8px; margin-right: 8px;">%s</span>`, html.EscapeString(flag))
		}
		b.WriteString(`</div>`)
	}

	b.WriteString(`<h3>Contact Information</h3>`)
	fmt.Fprintf(&b, `<p><strong>Name:</strong> %s</p>`, html.EscapeString(lead.CallerName))
	fmt.Fprintf(&b, `<p><strong>Phone:</strong> <a href="tel:%s">%s</a></p>`, telDigits(lead.CallerNumber), html.EscapeString(lead.CallerNumber))
	fmt.Fprintf(&b, `<p><strong>Address:</strong> <a href="%s">%s</a></p>`, mapsLink(lead.Address), html.EscapeString(lead.Address))

	b.WriteString(`<h3>Problem Description</h3>`)
	fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(lead.Problem))

	b.WriteString(`<h3>Urgency Level</h3>`)
	fmt.Fprintf(&b, `<p style="color: %s; font-weight: bold; text-transform: uppercase;">%s</p>`, color, lead.Urgency)

	if lead.RecordingURL != "" {
		b.WriteString(`<h3>Call Recording</h3>`)
		fmt.Fprintf(&b, `<p><a href="%s">Listen to Recording</a></p>`, lead.RecordingURL)
	}

	fmt.Fprintf(&b, `<div style="margin-top: 24px; padding: 16px; background: #f9fafb;"><p style="margin: 0; font-size: 14px; color: #6b7280;"><strong>Call ID:</strong> %s<br><strong>Callback Required:</strong> Within %s</p></div>`,
		html.EscapeString(lead.CallID), classify.CallbackSLA(lead.Urgency))

	b.WriteString(`</div></div>`)
	return b.String()
}
