package lookup

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mailprobe/internal/metrics"
	"mailprobe/internal/models"
)

// DialFunc opens the TCP connection for one probe attempt. Swapped out in
// tests and when probe traffic is routed through a SOCKS proxy.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// MailFrom is the neutral, non-deliverable envelope sender used by every probe.
const MailFrom = "test@example.com"

// Port 25 is widely blocked on outbound residential/cloud links; 587 and 2525
// prove the MX is reachable even when 25 is filtered.
var probePorts = []int{25, 587, 2525}

// Prevents the egress IP from being banned by Google/Outlook for opening too
// many concurrent connections.
var smtpSemaphore = make(chan struct{}, 15)

// Messages a server attaches to 550 when it is rejecting the client rather
// than the mailbox.
var blockKeywords = []string{"block", "denied", "policy", "spam", "sender", "verify", "verification"}

// SMTPProber speaks just enough SMTP to learn whether an MX would accept mail
// for one recipient: HELO, STARTTLS when offered, MAIL, RCPT, QUIT. It never
// sends DATA.
type SMTPProber struct {
	HeloHost string
	MailFrom string
	Ports    []int
	Timeout  time.Duration // per port, covers connect and each read
	Dial     DialFunc      // nil = direct dialer
}

// NewSMTPProber returns a prober with production defaults.
func NewSMTPProber() *SMTPProber {
	helo, err := os.Hostname()
	if err != nil || helo == "" {
		helo = "localhost"
	}
	return &SMTPProber{
		HeloHost: helo,
		MailFrom: MailFrom,
		Ports:    probePorts,
		Timeout:  3 * time.Second,
	}
}

// Probe checks whether mxHost would accept mail for email. Ports are tried in
// order: a transport-level failure advances to the next port, any protocol
// reply concludes the probe. When every port fails at transport the most
// recent failure class is returned, except that a timeout on any port wins.
func (p *SMTPProber) Probe(ctx context.Context, mxHost, email string) models.ProbeResult {
	select {
	case smtpSemaphore <- struct{}{}:
	case <-ctx.Done():
		return models.ProbeResult{Outcome: models.OutcomeUnknownTimeout, Message: "Connection Timeout"}
	}
	defer func() { <-smtpSemaphore }()

	var last models.ProbeResult
	sawTimeout := false

	for _, port := range p.Ports {
		res, final := p.probePort(ctx, mxHost, port, email, true)
		if final {
			metrics.Probes.WithLabelValues(string(res.Outcome)).Inc()
			return res
		}
		if res.Outcome == models.OutcomeUnknownTimeout {
			sawTimeout = true
		}
		last = res
		if ctx.Err() != nil {
			break
		}
	}

	if sawTimeout {
		last = models.ProbeResult{Outcome: models.OutcomeUnknownTimeout, Message: "Connection Timeout"}
	}
	metrics.Probes.WithLabelValues(string(last.Outcome)).Inc()
	return last
}

// probePort runs one full dialog against mxHost:port. final is false when the
// failure was transport-level and the next port should be tried.
func (p *SMTPProber) probePort(ctx context.Context, mxHost string, port int, email string, tryTLS bool) (models.ProbeResult, bool) {
	addr := net.JoinHostPort(mxHost, strconv.Itoa(port))

	dial := p.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: p.Timeout}
		dial = d.DialContext
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	conn, err := dial(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return classifyTransport(err), false
	}

	// Each protocol step gets a fresh Timeout window, clipped to the request
	// deadline so a cancelled request never keeps a socket alive.
	arm := func() {
		deadline := time.Now().Add(p.Timeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		conn.SetDeadline(deadline)
	}

	text := textproto.NewConn(conn)
	defer func() { text.Close() }()

	arm()
	if _, _, err := text.ReadResponse(220); err != nil {
		if isProtocolReply(err) {
			return models.ProbeResult{Outcome: models.OutcomeUnknownConnect, Message: "Handshake Failed"}, false
		}
		return classifyTransport(err), false
	}

	if res, final, err := p.helo(text, arm); err == nil && final {
		return res, true
	} else if err != nil {
		return classifyTransport(err), false
	}

	if tryTLS {
		arm()
		if _, err := text.Cmd("STARTTLS"); err != nil {
			return classifyTransport(err), false
		}
		arm()
		if _, _, err := text.ReadResponse(220); err != nil {
			if !isProtocolReply(err) {
				return classifyTransport(err), false
			}
			// Server declined STARTTLS; carry on in cleartext.
		} else {
			tlsConn := tls.Client(conn, &tls.Config{ServerName: mxHost, InsecureSkipVerify: true})
			arm()
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				// The server already said 220, so the cleartext session is
				// gone. Redial the same port and skip the upgrade.
				text.Close()
				return p.probePort(ctx, mxHost, port, email, false)
			}
			conn = tlsConn
			text = textproto.NewConn(tlsConn)

			if res, final, err := p.helo(text, arm); err == nil && final {
				return res, true
			} else if err != nil {
				return classifyTransport(err), false
			}
		}
	}

	arm()
	if _, err := text.Cmd("MAIL FROM:<%s>", p.MailFrom); err != nil {
		return classifyTransport(err), false
	}
	arm()
	if _, _, err := text.ReadResponse(250); err != nil {
		var te *textproto.Error
		if !errors.As(err, &te) {
			return classifyTransport(err), false
		}
		if te.Code == 530 || strings.Contains(strings.ToLower(te.Msg), "authentication required") {
			return models.ProbeResult{Outcome: models.OutcomeUnknownAuth, Message: fmt.Sprintf("Authentication Required (%d)", te.Code)}, true
		}
		return models.ProbeResult{Outcome: models.OutcomeUnknown, Message: "SMTP Error: " + te.Error()}, true
	}

	arm()
	if _, err := text.Cmd("RCPT TO:<%s>", email); err != nil {
		return classifyTransport(err), false
	}
	arm()
	code, msg, err := text.ReadResponse(0)
	if err != nil {
		return classifyTransport(err), false
	}

	arm()
	text.Cmd("QUIT") // best effort, the reply does not matter

	return mapRcptReply(code, msg), true
}

// helo sends HELO and reads the reply. final=true means the server rejected
// the greeting with a protocol reply and the probe cannot proceed; a non-nil
// error is transport-level.
func (p *SMTPProber) helo(text *textproto.Conn, arm func()) (models.ProbeResult, bool, error) {
	arm()
	if _, err := text.Cmd("HELO %s", p.HeloHost); err != nil {
		return models.ProbeResult{}, false, err
	}
	arm()
	if _, _, err := text.ReadResponse(250); err != nil {
		var te *textproto.Error
		if !errors.As(err, &te) {
			return models.ProbeResult{}, false, err
		}
		res := models.ProbeResult{
			Outcome: models.OutcomeUnknown,
			Message: "SMTP Error: HELO rejected: " + te.Error(),
		}
		return res, true, nil
	}
	return models.ProbeResult{}, false, nil
}

// mapRcptReply converts the RCPT TO reply code into a probe outcome.
func mapRcptReply(code int, msg string) models.ProbeResult {
	lower := strings.ToLower(msg)
	switch {
	case code == 250:
		return models.ProbeResult{Outcome: models.OutcomeValid, Message: "SMTP OK"}
	case code == 550:
		// "User unknown" and "IP blocked" both arrive as 550; only the
		// message text tells them apart.
		for _, kw := range blockKeywords {
			if strings.Contains(lower, kw) {
				return models.ProbeResult{Outcome: models.OutcomeUnknownBlock, Message: fmt.Sprintf("Server Blocked IP (550): %s", msg)}
			}
		}
		return models.ProbeResult{Outcome: models.OutcomeInvalid, Message: "User does not exist (550)"}
	case code == 450 || code == 451 || code == 452:
		return models.ProbeResult{Outcome: models.OutcomeUnknown, Message: "Greylisted / Rate Limited"}
	case code == 530 || strings.Contains(lower, "authentication required"):
		return models.ProbeResult{Outcome: models.OutcomeUnknownAuth, Message: fmt.Sprintf("Authentication Required (%d)", code)}
	default:
		return models.ProbeResult{Outcome: models.OutcomeUnknown, Message: fmt.Sprintf("Server returned code %d", code)}
	}
}

// classifyTransport buckets a socket-level failure. Timeouts and refusals get
// their own outcome classes so the composer can tell a filtered port from a
// dead server.
func classifyTransport(err error) models.ProbeResult {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.ProbeResult{Outcome: models.OutcomeUnknownTimeout, Message: "Connection Timeout"}
	}
	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return models.ProbeResult{Outcome: models.OutcomeUnknownRefused, Message: "Connection Refused"}
	}
	return models.ProbeResult{Outcome: models.OutcomeUnknown, Message: "SMTP Error: " + err.Error()}
}

func isProtocolReply(err error) bool {
	var te *textproto.Error
	return errors.As(err, &te)
}
