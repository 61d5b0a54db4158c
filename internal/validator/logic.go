package validator

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mailprobe/internal/cache"
	"mailprobe/internal/lookup"
	"mailprobe/internal/metrics"
	"mailprobe/internal/models"
)

// BulkWorkers is the fixed pool size for bulk verification. Five keeps a
// batch moving without hammering any single receiving MX.
const BulkWorkers = 5

// syntaxPattern accepts the address shapes seen in real-world lists. The
// dotted-domain requirement rejects single-label (intranet) domains: they
// never route mail on the public internet.
var syntaxPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// VerifySyntax reports whether the trimmed address is shaped well enough
// to be worth probing.
func VerifySyntax(email string) bool {
	return syntaxPattern.MatchString(email)
}

// Resolver yields the priority-sorted MX set for a domain.
type Resolver interface {
	Resolve(ctx context.Context, domain string) ([]lookup.MXRecord, bool)
}

// Prober runs one RCPT probe against a mail exchanger.
type Prober interface {
	Probe(ctx context.Context, mxHost, email string) models.ProbeResult
}

// Service runs the verification pipeline: cache, syntax, MX, provider,
// disposable, SMTP probe, catch-all cross-check, verdict.
type Service struct {
	resolver Resolver
	prober   Prober
	store    cache.Store
	workers  int
}

// NewService wires the pipeline stages together. store may be nil, which
// disables caching entirely.
func NewService(resolver Resolver, prober Prober, store cache.Store) *Service {
	return &Service{
		resolver: resolver,
		prober:   prober,
		store:    store,
		workers:  BulkWorkers,
	}
}

// Verify produces a verdict for one address. It never fails: bad input,
// dead domains and unreachable servers all map to a verdict.
func (s *Service) Verify(ctx context.Context, email string) models.Verdict {
	email = strings.TrimSpace(email)

	if v, ok := s.cachedVerdict(ctx, email); ok {
		return v
	}

	verdict := s.verify(ctx, email)
	metrics.Verifications.WithLabelValues(string(verdict.Status)).Inc()

	// A cancelled request may have aborted the probe mid-dialog; caching
	// that verdict would poison a month of lookups for this address.
	if s.store != nil && ctx.Err() == nil {
		if err := s.store.Put(ctx, email, verdict); err != nil {
			log.Printf("[ERROR] Cache write for %s failed: %v", email, err)
		}
	}
	return verdict
}

// VerifyBulk verifies a batch over a fixed worker pool. Results line up
// index-for-index with the input.
func (s *Service) VerifyBulk(ctx context.Context, emails []string) []models.Verdict {
	results := make([]models.Verdict, len(emails))

	type job struct {
		idx   int
		email string
	}

	bufSize := len(emails)
	if bufSize > 1000 {
		bufSize = 1000
	}
	jobs := make(chan job, bufSize)
	go func() {
		for i, e := range emails {
			jobs <- job{idx: i, email: e}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = s.Verify(ctx, j.email)
			}
		}()
	}
	wg.Wait()

	return results
}

func (s *Service) cachedVerdict(ctx context.Context, email string) (models.Verdict, bool) {
	if s.store == nil {
		return models.Verdict{}, false
	}

	v, found, err := s.store.Get(ctx, email)
	if err != nil {
		metrics.CacheReads.WithLabelValues("error").Inc()
		log.Printf("[ERROR] Cache read for %s failed: %v", email, err)
		return models.Verdict{}, false
	}
	if !found {
		metrics.CacheReads.WithLabelValues("miss").Inc()
		return models.Verdict{}, false
	}

	metrics.CacheReads.WithLabelValues("hit").Inc()
	v.Cached = true
	return v, true
}

// verify runs the live pipeline for a cache miss.
func (s *Service) verify(ctx context.Context, email string) models.Verdict {
	checks := models.CheckFlags{SMTPStatus: models.OutcomeSkipped}
	provider := "Unknown"

	if !VerifySyntax(email) {
		return composeVerdict(email, checks, provider, models.ProbeResult{})
	}
	checks.Syntax = true

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])

	records, ok := s.resolver.Resolve(ctx, domain)
	if !ok {
		return composeVerdict(email, checks, provider, models.ProbeResult{})
	}
	checks.Domain = true
	checks.MX = true
	provider = lookup.IdentifyProvider(records)

	if lookup.IsDisposableDomain(domain) {
		checks.Disposable = true
		return composeVerdict(email, checks, provider, models.ProbeResult{})
	}

	primaryMX := records[0].Host
	probe := s.probe(ctx, primaryMX, email)
	checks.SMTPStatus = probe.Outcome

	// A 250 for the user proves nothing if the server says 250 to everyone,
	// so cross-check with an address that cannot exist.
	if probe.Outcome == models.OutcomeValid {
		ghost := s.probe(ctx, primaryMX, randomProbeAddress(domain))
		if ghost.Outcome == models.OutcomeValid {
			checks.CatchAll = true
		}
	}

	return composeVerdict(email, checks, provider, probe)
}

// probe shields the pipeline from a panicking prober. The verdict degrades
// to an error outcome instead of killing the whole request.
func (s *Service) probe(ctx context.Context, mxHost, email string) (res models.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Probe for %s via %s panicked: %v", email, mxHost, r)
			res = models.ProbeResult{
				Outcome: models.OutcomeError,
				Message: fmt.Sprintf("SMTP Error: %v", r),
			}
		}
	}()
	return s.prober.Probe(ctx, mxHost, email)
}

// randomProbeAddress builds a recipient that should not exist on the
// domain. The token is random so servers cannot whitelist it.
func randomProbeAddress(domain string) string {
	u := uuid.New()
	return fmt.Sprintf("verify_%x@%s", u[:4], domain)
}
