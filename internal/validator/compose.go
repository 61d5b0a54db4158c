package validator

import (
	"strings"

	"mailprobe/internal/models"
)

// composeVerdict folds the check flags and the user probe into a final
// verdict. It is total: every input combination maps to exactly one verdict.
//
// Early exits (bad syntax, no MX, disposable) carry literal scores; everything
// else goes through calculateScore.
func composeVerdict(email string, checks models.CheckFlags, provider string, probe models.ProbeResult) models.Verdict {
	verdict := models.Verdict{
		Email:    email,
		Provider: provider,
		Checks:   checks,
	}

	if !checks.Syntax {
		verdict.Status = models.StatusInvalid
		verdict.Reason = "Syntax Error"
		verdict.RiskLevel = models.RiskHigh
		verdict.Score = 0
		return verdict
	}

	if !checks.MX {
		verdict.Status = models.StatusInvalid
		verdict.Reason = "Invalid Domain (No MX)"
		verdict.RiskLevel = models.RiskHigh
		verdict.Score = 10 // 20 for syntax minus a penalty for the dead domain
		return verdict
	}

	if checks.Disposable {
		verdict.Status = models.StatusInvalid
		verdict.Reason = "Disposable Domain"
		verdict.RiskLevel = models.RiskCritical
		verdict.Score = 0
		return verdict
	}

	// Provisional status straight from the user probe.
	switch probe.Outcome {
	case models.OutcomeValid:
		verdict.Status = models.StatusValid
		verdict.Reason = "Deliverable"
	case models.OutcomeInvalid:
		verdict.Status = models.StatusInvalid
		verdict.Reason = probe.Message
	default:
		verdict.Status = models.StatusUnknown
		verdict.Reason = probe.Message
	}

	// A positive catch-all probe means the 250 proves nothing about the user.
	if verdict.Status == models.StatusValid && checks.CatchAll {
		verdict.Status = models.StatusCatchAll
		verdict.Reason = "Accept-All Domain (Cannot verify specific user)"
	}

	// Refine unknowns: transport-level classes mean the server exists but the
	// probe path is filtered; auth class means the MX only talks to clients
	// that log in first.
	if verdict.Status == models.StatusUnknown {
		tag := string(probe.Outcome)
		switch {
		case strings.Contains(tag, "timeout") || strings.Contains(tag, "refused") ||
			strings.Contains(tag, "connect") || strings.Contains(tag, "block"):
			verdict.Status = models.StatusBlocked
			verdict.Reason = "Valid Domain (Blocked: " + probe.Message + ")"
		case strings.Contains(tag, "auth"):
			verdict.Status = models.StatusRisky
		}
	}

	switch verdict.Status {
	case models.StatusValid:
		verdict.RiskLevel = models.RiskLow
	case models.StatusCatchAll, models.StatusRisky:
		verdict.RiskLevel = models.RiskMedium
	default: // blocked, unknown, invalid
		verdict.RiskLevel = models.RiskHigh
	}

	verdict.Score = calculateScore(checks, verdict.Status)
	return verdict
}

// calculateScore derives the 0-100 confidence score from the passed checks
// and the final status. Blocked scores with the unknown bucket: the probe
// proved nothing about the mailbox either way.
func calculateScore(checks models.CheckFlags, status models.Status) int {
	score := 0
	if checks.Syntax {
		score += 20
	}
	if checks.MX {
		score += 30
	}

	if checks.Disposable {
		return 0
	}
	if status == models.StatusInvalid {
		return 0
	}

	switch status {
	case models.StatusValid:
		score += 50 // Max confidence
	case models.StatusCatchAll:
		score += 30 // Valid domain, but user unverified
	case models.StatusRisky:
		score += 25 // Valid domain behind an auth wall, likely a real server
	default:
		score += 10 // Some uncertainty
	}

	if score > 100 {
		score = 100
	}
	return score
}
