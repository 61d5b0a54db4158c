package validator

import (
	"testing"

	"mailprobe/internal/models"
)

func TestComposeVerdict(t *testing.T) {
	// Flag presets shared by the probe-driven cases.
	probed := func(outcome models.ProbeOutcome) models.CheckFlags {
		return models.CheckFlags{Syntax: true, Domain: true, MX: true, SMTPStatus: outcome}
	}

	tests := []struct {
		name           string
		checks         models.CheckFlags
		provider       string
		probe          models.ProbeResult
		expectedStatus models.Status
		expectedReason string
		expectedRisk   models.RiskLevel
		expectedScore  int
	}{
		// ── Early exits ───────────────────────────────────────────────────────
		{
			name:           "Syntax failure",
			checks:         models.CheckFlags{SMTPStatus: models.OutcomeSkipped},
			provider:       "Unknown",
			expectedStatus: models.StatusInvalid,
			expectedReason: "Syntax Error",
			expectedRisk:   models.RiskHigh,
			expectedScore:  0,
		},
		{
			name:           "Domain without MX",
			checks:         models.CheckFlags{Syntax: true, SMTPStatus: models.OutcomeSkipped},
			provider:       "Unknown",
			expectedStatus: models.StatusInvalid,
			expectedReason: "Invalid Domain (No MX)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  10, // 20 for syntax minus the dead-domain penalty
		},
		{
			name: "Disposable domain",
			checks: models.CheckFlags{
				Syntax: true, Domain: true, MX: true,
				Disposable: true, SMTPStatus: models.OutcomeSkipped,
			},
			provider:       "Custom/Private Server",
			expectedStatus: models.StatusInvalid,
			expectedReason: "Disposable Domain",
			expectedRisk:   models.RiskCritical,
			expectedScore:  0,
		},

		// ── Probe-driven outcomes ─────────────────────────────────────────────
		{
			name:           "Deliverable mailbox",
			checks:         probed(models.OutcomeValid),
			provider:       "Google Workspace",
			probe:          models.ProbeResult{Outcome: models.OutcomeValid, Message: "SMTP OK"},
			expectedStatus: models.StatusValid,
			expectedReason: "Deliverable",
			expectedRisk:   models.RiskLow,
			expectedScore:  100, // 20 + 30 + 50
		},
		{
			name: "Accept-all server",
			checks: func() models.CheckFlags {
				c := probed(models.OutcomeValid)
				c.CatchAll = true
				return c
			}(),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeValid, Message: "SMTP OK"},
			expectedStatus: models.StatusCatchAll,
			expectedReason: "Accept-All Domain (Cannot verify specific user)",
			expectedRisk:   models.RiskMedium,
			expectedScore:  80, // 20 + 30 + 30
		},
		{
			name:           "Hard bounce",
			checks:         probed(models.OutcomeInvalid),
			provider:       "Microsoft Office 365",
			probe:          models.ProbeResult{Outcome: models.OutcomeInvalid, Message: "User does not exist (550)"},
			expectedStatus: models.StatusInvalid,
			expectedReason: "User does not exist (550)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  0,
		},

		// ── Unknown refinement ────────────────────────────────────────────────
		{
			name:           "All ports timed out",
			checks:         probed(models.OutcomeUnknownTimeout),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknownTimeout, Message: "Connection Timeout"},
			expectedStatus: models.StatusBlocked,
			expectedReason: "Valid Domain (Blocked: Connection Timeout)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60, // 20 + 30 + 10
		},
		{
			name:           "All ports refused",
			checks:         probed(models.OutcomeUnknownRefused),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknownRefused, Message: "Connection Refused"},
			expectedStatus: models.StatusBlocked,
			expectedReason: "Valid Domain (Blocked: Connection Refused)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60,
		},
		{
			name:           "IP blocked by policy",
			checks:         probed(models.OutcomeUnknownBlock),
			provider:       "Proofpoint (Enterprise)",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknownBlock, Message: "Server Blocked IP (550): listed on spamhaus"},
			expectedStatus: models.StatusBlocked,
			expectedReason: "Valid Domain (Blocked: Server Blocked IP (550): listed on spamhaus)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60,
		},
		{
			name:           "Broken handshake",
			checks:         probed(models.OutcomeUnknownConnect),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknownConnect, Message: "Handshake Failed"},
			expectedStatus: models.StatusBlocked,
			expectedReason: "Valid Domain (Blocked: Handshake Failed)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60,
		},
		{
			name:           "Authentication wall",
			checks:         probed(models.OutcomeUnknownAuth),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknownAuth, Message: "Authentication Required (530)"},
			expectedStatus: models.StatusRisky,
			expectedReason: "Authentication Required (530)",
			expectedRisk:   models.RiskMedium,
			expectedScore:  75, // 20 + 30 + 25
		},
		{
			name:           "Greylisted stays unknown",
			checks:         probed(models.OutcomeUnknown),
			provider:       "Google Workspace",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknown, Message: "Greylisted / Rate Limited"},
			expectedStatus: models.StatusUnknown,
			expectedReason: "Greylisted / Rate Limited",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60,
		},
		{
			name:           "Odd reply code stays unknown",
			checks:         probed(models.OutcomeUnknown),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeUnknown, Message: "Server returned code 251"},
			expectedStatus: models.StatusUnknown,
			expectedReason: "Server returned code 251",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60,
		},
		{
			name:           "Prober crash degrades to unknown",
			checks:         probed(models.OutcomeError),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeError, Message: "SMTP Error: unexpected state"},
			expectedStatus: models.StatusUnknown,
			expectedReason: "SMTP Error: unexpected state",
			expectedRisk:   models.RiskHigh,
			expectedScore:  60,
		},

		// ── Defensive combinations ────────────────────────────────────────────
		{
			// The pipeline never sets catch_all without a valid user probe;
			// the composer must not invent a catch-all from a bounce either.
			name: "Catch-all flag without valid probe is ignored",
			checks: func() models.CheckFlags {
				c := probed(models.OutcomeInvalid)
				c.CatchAll = true
				return c
			}(),
			provider:       "Custom/Private Server",
			probe:          models.ProbeResult{Outcome: models.OutcomeInvalid, Message: "User does not exist (550)"},
			expectedStatus: models.StatusInvalid,
			expectedReason: "User does not exist (550)",
			expectedRisk:   models.RiskHigh,
			expectedScore:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := composeVerdict("user@example.com", tt.checks, tt.provider, tt.probe)

			if v.Status != tt.expectedStatus {
				t.Errorf("Status %q != expected %q", v.Status, tt.expectedStatus)
			}
			if v.Reason != tt.expectedReason {
				t.Errorf("Reason %q != expected %q", v.Reason, tt.expectedReason)
			}
			if v.RiskLevel != tt.expectedRisk {
				t.Errorf("RiskLevel %q != expected %q", v.RiskLevel, tt.expectedRisk)
			}
			if v.Score != tt.expectedScore {
				t.Errorf("Score %d != expected %d", v.Score, tt.expectedScore)
			}
			if v.Score < 0 || v.Score > 100 {
				t.Errorf("Score %d outside [0, 100]", v.Score)
			}
			if v.Email != "user@example.com" {
				t.Errorf("Email %q not carried through", v.Email)
			}
			if v.Provider != tt.provider {
				t.Errorf("Provider %q != expected %q", v.Provider, tt.provider)
			}
			if v.Cached {
				t.Error("freshly composed verdict must not be marked cached")
			}
		})
	}
}

func TestVerifySyntax(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.domain.co", true},
		{"USER_99%x@mail.example.org", true},
		{"verify_a1b2c3d4@example.com", true},
		{"user@localhost", false}, // single-label domains never route public mail
		{"user@domain.c", false},
		{"@example.com", false},
		{"user@", false},
		{"user example@example.com", false},
		{"user@exa mple.com", false},
		{"user@example.com ", false}, // caller trims before validating
		{"", false},
	}

	for _, tt := range tests {
		if got := VerifySyntax(tt.email); got != tt.want {
			t.Errorf("VerifySyntax(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
