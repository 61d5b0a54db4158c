package models

// Status is the final classification of an address after all checks ran.
type Status string

// RiskLevel grades how dangerous it is to send to the address.
type RiskLevel string

// ProbeOutcome is the result class of a single SMTP probe.
type ProbeOutcome string

const (
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
	StatusCatchAll Status = "catch-all"
	StatusRisky    Status = "risky"
	StatusBlocked  Status = "blocked"
	StatusUnknown  Status = "unknown"

	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"

	OutcomeValid          ProbeOutcome = "valid"
	OutcomeInvalid        ProbeOutcome = "invalid"
	OutcomeUnknown        ProbeOutcome = "unknown"
	OutcomeUnknownBlock   ProbeOutcome = "unknown_block"
	OutcomeUnknownTimeout ProbeOutcome = "unknown_timeout"
	OutcomeUnknownRefused ProbeOutcome = "unknown_refused"
	OutcomeUnknownConnect ProbeOutcome = "unknown_connect"
	OutcomeUnknownAuth    ProbeOutcome = "unknown_auth"
	OutcomeError          ProbeOutcome = "error"
	OutcomeSkipped        ProbeOutcome = "skipped"
)

// ProbeResult pairs an outcome class with the server's (or transport's) message.
type ProbeResult struct {
	Outcome ProbeOutcome
	Message string
}

// CheckFlags records which pipeline stages passed for an address.
// SMTPStatus stays "skipped" on paths that never reach the prober.
type CheckFlags struct {
	Syntax     bool         `json:"syntax"`
	Domain     bool         `json:"domain"`
	MX         bool         `json:"mx"`
	Disposable bool         `json:"disposable"`
	SMTPStatus ProbeOutcome `json:"smtp_status"`
	CatchAll   bool         `json:"catch_all"`
}

// Verdict is the full verification result returned to callers and stored in
// the verdict cache. Cached is set only when the verdict was served from cache.
type Verdict struct {
	Email     string     `json:"email"`
	Status    Status     `json:"status"`
	Reason    string     `json:"reason"`
	Score     int        `json:"score"`
	Provider  string     `json:"provider"`
	RiskLevel RiskLevel  `json:"risk_level"`
	Checks    CheckFlags `json:"checks"`
	Cached    bool       `json:"cached,omitempty"`
}
