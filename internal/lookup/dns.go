package lookup

import (
	"container/list"
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mailprobe/internal/metrics"
)

// MXRecord holds the simplified result of an MX lookup.
type MXRecord struct {
	Host string
	Pref uint16
}

// mxLookuper is the one slice of net.Resolver the MX resolver needs.
type mxLookuper interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

const (
	memoCapacity   = 128
	resolveTimeout = 5 * time.Second
)

// MXResolver resolves and priority-sorts MX records, memoizing results for
// the lifetime of the process. Absence (NXDOMAIN, empty answer, no
// nameservers, transport failure) is memoized the same as success, and
// concurrent lookups of one domain are coalesced into a single query.
type MXResolver struct {
	r       mxLookuper
	timeout time.Duration

	group singleflight.Group

	mu    sync.Mutex
	cap   int
	order *list.List               // front = most recently used
	memo  map[string]*list.Element // domain -> element holding *memoEntry
}

type memoEntry struct {
	domain  string
	records []MXRecord
}

// NewMXResolver builds a resolver over the system DNS.
// In a high-perf SaaS we can't wait 30 seconds for a bad DNS server, so the
// resolver dials with a strict timeout instead of the system default.
func NewMXResolver() *MXResolver {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{
				Timeout: 3 * time.Second, // Fail fast if DNS is slow
			}
			return d.DialContext(ctx, network, address)
		},
	}
	return NewMXResolverWith(r)
}

// NewMXResolverWith builds a resolver over a custom lookup backend.
func NewMXResolverWith(r mxLookuper) *MXResolver {
	return &MXResolver{
		r:       r,
		timeout: resolveTimeout,
		cap:     memoCapacity,
		order:   list.New(),
		memo:    make(map[string]*list.Element),
	}
}

// Resolve returns the priority-sorted MX set for domain. ok is false when the
// domain has no usable MX records for any reason; the caller does not need to
// distinguish NXDOMAIN from a dead resolver, both mean "not verifiable".
func (m *MXResolver) Resolve(ctx context.Context, domain string) ([]MXRecord, bool) {
	domain = strings.ToLower(domain)

	if recs, hit := m.lookupMemo(domain); hit {
		metrics.MXLookups.WithLabelValues("memo_hit").Inc()
		return recs, len(recs) > 0
	}

	// The lookup runs detached from the caller: its result is shared by
	// every request coalesced onto it, so one client's disconnect must not
	// abort it for the rest. The resolver timeout bounds the wait instead.
	ch := m.group.DoChan(domain, func() (interface{}, error) {
		recs := m.resolve(domain)
		m.store(domain, recs)
		return recs, nil
	})

	select {
	case res := <-ch:
		recs := res.Val.([]MXRecord)
		return recs, len(recs) > 0
	case <-ctx.Done():
		return nil, false
	}
}

func (m *MXResolver) resolve(domain string) []MXRecord {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	mxs, err := m.r.LookupMX(ctx, domain)
	if err != nil || len(mxs) == 0 {
		metrics.MXLookups.WithLabelValues("none").Inc()
		return nil
	}

	records := make([]MXRecord, 0, len(mxs))
	for _, mx := range mxs {
		records = append(records, MXRecord{
			Host: strings.TrimSuffix(mx.Host, "."),
			Pref: mx.Pref,
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})

	metrics.MXLookups.WithLabelValues("resolved").Inc()
	return records
}

func (m *MXResolver) lookupMemo(domain string) ([]MXRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.memo[domain]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoEntry).records, true
}

func (m *MXResolver) store(domain string, records []MXRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.memo[domain]; ok {
		el.Value.(*memoEntry).records = records
		m.order.MoveToFront(el)
		return
	}

	m.memo[domain] = m.order.PushFront(&memoEntry{domain: domain, records: records})
	for len(m.memo) > m.cap {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.memo, oldest.Value.(*memoEntry).domain)
	}
}
