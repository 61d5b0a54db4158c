package lookup

import "testing"

func mx(hosts ...string) []MXRecord {
	records := make([]MXRecord, 0, len(hosts))
	for i, h := range hosts {
		records = append(records, MXRecord{Host: h, Pref: uint16(10 * (i + 1))})
	}
	return records
}

func TestIdentifyProvider(t *testing.T) {
	cases := []struct {
		name  string
		hosts []string
		want  string
	}{
		// ── Big mailbox providers ──
		{"google", []string{"aspmx.l.google.com"}, "Google Workspace"},
		{"gmail alias", []string{"gmail-smtp-in.l.google.com"}, "Google Workspace"},
		{"microsoft", []string{"example-com.mail.protection.outlook.com"}, "Microsoft Office 365"},
		{"hotmail", []string{"mx1.hotmail.com"}, "Microsoft Office 365"},
		{"yahoo", []string{"mta5.am0.yahoodns.net"}, "Yahoo/AOL"},
		{"icloud", []string{"mx01.mail.icloud.com"}, "Apple iCloud"},
		{"apple alias", []string{"mx.apple.com"}, "Apple iCloud"},
		{"proton", []string{"mail.protonmail.ch"}, "ProtonMail"},

		// ── Gateways and hosters ──
		{"proofpoint", []string{"mx1.proofpoint.com"}, "Proofpoint (Enterprise)"},
		{"proofpoint dotted", []string{"relay.pp.hosted.net"}, "Proofpoint (Enterprise)"},
		{"mimecast", []string{"us-smtp-inbound-1.mimecast.com"}, "Mimecast (Enterprise)"},
		{"yandex", []string{"mx.yandex.net"}, "Yandex"},
		{"zoho", []string{"mx.zoho.com"}, "Zoho Mail"},
		{"fastmail", []string{"in1-smtp.messagingengine.fastmail.com"}, "FastMail"},
		{"gmx", []string{"mx00.gmx.net"}, "GMX Mail"},
		{"mailru", []string{"mxs.mail.ru"}, "Mail.ru"},
		{"mailgun", []string{"mxa.mailgun.org"}, "Mailgun"},
		{"sendgrid", []string{"mx.sendgrid.net"}, "SendGrid"},
		{"rackspace", []string{"mx1.emailsrvr.rackspace.com"}, "Rackspace Email"},
		{"ionos", []string{"mx00.ionos.de"}, "IONOS (1&1)"},
		{"1and1 alias", []string{"mx01.1and1.com"}, "IONOS (1&1)"},
		{"godaddy", []string{"smtp.secureserver.godaddy.com"}, "GoDaddy"},

		// ── Ordering and fallbacks ──
		{"first match wins", []string{"zoho.google.com"}, "Google Workspace"},
		{"any record can match", []string{"mx1.example.com", "aspmx.l.google.com"}, "Google Workspace"},
		{"case folded", []string{"ASPMX.L.GOOGLE.COM"}, "Google Workspace"},
		{"unrecognized", []string{"mx1.example.com"}, "Custom/Private Server"},
		{"no records", nil, "Unknown"},
	}

	for _, tc := range cases {
		if got := IdentifyProvider(mx(tc.hosts...)); got != tc.want {
			t.Errorf("%s: IdentifyProvider(%v) = %q, want %q", tc.name, tc.hosts, got, tc.want)
		}
	}
}
