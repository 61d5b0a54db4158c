package lookup

import "strings"

// Common disposable domains. Loaded once at init; extend here, never per-request.
var disposableDomains = map[string]struct{}{
	"mailinator.com": {}, "guerrillamail.com": {}, "yopmail.com": {},
	"10minutemail.com": {}, "sharklasers.com": {}, "tempmail.com": {},
	"throwawaymail.com": {}, "temp-mail.org": {}, "tempmail.net": {},
	"dispostable.com": {},
}

// IsDisposableDomain checks if the domain is a known burner provider.
func IsDisposableDomain(domain string) bool {
	_, exists := disposableDomains[strings.ToLower(domain)]
	return exists
}
