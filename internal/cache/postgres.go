package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailprobe/internal/models"
)

// Postgres persists verdicts in a verification_cache table so results
// survive restarts and can be shared by several instances.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgres connects to Postgres, verifies the connection and runs
// migrations.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	p := &Postgres{pool: pool, ttl: TTL}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// migrate creates the cache table if it doesn't exist
func (p *Postgres) migrate(ctx context.Context) error {
	queryTable := `
	CREATE TABLE IF NOT EXISTS verification_cache (
		email TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		reason TEXT,
		score INT,
		provider TEXT,
		risk_level TEXT,
		checks JSONB,
		verified_at TIMESTAMPTZ DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	);`

	// idx_email mirrors the primary key; kept so existing dashboards that
	// expect it keep working.
	queryIdxEmail := `CREATE INDEX IF NOT EXISTS idx_email ON verification_cache(email);`
	queryIdxExpires := `CREATE INDEX IF NOT EXISTS idx_expires ON verification_cache(expires_at);`

	if _, err := p.pool.Exec(ctx, queryTable); err != nil {
		return fmt.Errorf("migration failed (verification_cache): %w", err)
	}
	if _, err := p.pool.Exec(ctx, queryIdxEmail); err != nil {
		return fmt.Errorf("migration failed (idx_email): %w", err)
	}
	if _, err := p.pool.Exec(ctx, queryIdxExpires); err != nil {
		return fmt.Errorf("migration failed (idx_expires): %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, email string) (models.Verdict, bool, error) {
	query := `
	SELECT email, status, reason, score, provider, risk_level, checks
	FROM verification_cache
	WHERE email = $1 AND expires_at > NOW()`

	var (
		v      models.Verdict
		checks []byte
	)
	row := p.pool.QueryRow(ctx, query, email)
	if err := row.Scan(&v.Email, &v.Status, &v.Reason, &v.Score, &v.Provider, &v.RiskLevel, &checks); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Verdict{}, false, nil
		}
		return models.Verdict{}, false, fmt.Errorf("cache read failed: %w", err)
	}
	if err := json.Unmarshal(checks, &v.Checks); err != nil {
		return models.Verdict{}, false, fmt.Errorf("cache entry corrupt: %w", err)
	}
	return v, true, nil
}

func (p *Postgres) Put(ctx context.Context, email string, v models.Verdict) error {
	checks, err := json.Marshal(v.Checks)
	if err != nil {
		return fmt.Errorf("encode checks: %w", err)
	}

	query := `
	INSERT INTO verification_cache
		(email, status, reason, score, provider, risk_level, checks, verified_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
	ON CONFLICT (email) DO UPDATE SET
		status = EXCLUDED.status,
		reason = EXCLUDED.reason,
		score = EXCLUDED.score,
		provider = EXCLUDED.provider,
		risk_level = EXCLUDED.risk_level,
		checks = EXCLUDED.checks,
		verified_at = EXCLUDED.verified_at,
		expires_at = EXCLUDED.expires_at`

	expiresAt := time.Now().Add(p.ttl)
	_, err = p.pool.Exec(ctx, query,
		email, string(v.Status), v.Reason, v.Score, v.Provider, string(v.RiskLevel), checks, expiresAt)
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM verification_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cache purge failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
