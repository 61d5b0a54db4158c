package lookup

import "strings"

// providerPatterns maps MX hostname substrings to a human provider label.
// Scanned in order; the first match wins, so specific vendors must stay
// above the generic fallback.
var providerPatterns = []struct {
	patterns []string
	label    string
}{
	{[]string{"google", "gmail"}, "Google Workspace"},
	{[]string{"outlook", "microsoft", "hotmail"}, "Microsoft Office 365"},
	{[]string{"pp.hosted", "proofpoint"}, "Proofpoint (Enterprise)"},
	{[]string{"mimecast"}, "Mimecast (Enterprise)"},
	{[]string{"yandex"}, "Yandex"},
	{[]string{"zoho"}, "Zoho Mail"},
	{[]string{"yahoo"}, "Yahoo/AOL"},
	{[]string{"icloud", "apple"}, "Apple iCloud"},
	{[]string{"proton"}, "ProtonMail"},
	{[]string{"fastmail"}, "FastMail"},
	{[]string{"gmx"}, "GMX Mail"},
	{[]string{"mail.ru", "mailru"}, "Mail.ru"},
	{[]string{"mailgun"}, "Mailgun"},
	{[]string{"sendgrid"}, "SendGrid"},
	{[]string{"rackspace"}, "Rackspace Email"},
	{[]string{"1and1", "ionos"}, "IONOS (1&1)"},
	{[]string{"godaddy"}, "GoDaddy"},
}

// IdentifyProvider maps a domain's MX hosts to the operator running its mail.
// An empty record set means the domain has no mail infrastructure to name.
func IdentifyProvider(records []MXRecord) string {
	if len(records) == 0 {
		return "Unknown"
	}

	hosts := make([]string, 0, len(records))
	for _, r := range records {
		hosts = append(hosts, strings.ToLower(r.Host))
	}
	joined := strings.Join(hosts, " ")

	for _, p := range providerPatterns {
		for _, pat := range p.patterns {
			if strings.Contains(joined, pat) {
				return p.label
			}
		}
	}
	return "Custom/Private Server"
}
