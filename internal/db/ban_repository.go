package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/realmd/internal/model"
)

// BanRepository реализует auth.BanRepository для PostgreSQL.
// Даты хранятся в unix секундах; unbandate = bandate означает бессрочный бан.
type BanRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewBanRepository создаёт новый PostgreSQL repository.
func NewBanRepository(pool *pgxpool.Pool) *BanRepository {
	return &BanRepository{pool: pool, now: time.Now}
}

// PurgeExpiredIPBans deletes expired temporary IP bans.
func (r *BanRepository) PurgeExpiredIPBans(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM ip_banned WHERE unbandate <= $1 AND unbandate <> bandate`, r.now().Unix())
	if err != nil {
		return fmt.Errorf("purging expired ip bans: %w", err)
	}
	return nil
}

// IsIPBanned reports whether ip has a ban row.
func (r *BanRepository) IsIPBanned(ctx context.Context, ip string) (bool, error) {
	var banned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ip_banned WHERE ip = $1)`, ip,
	).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("checking ip ban of %s: %w", ip, err)
	}
	return banned, nil
}

// DeactivateExpiredAccountBans marks expired temporary bans inactive.
func (r *BanRepository) DeactivateExpiredAccountBans(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE account_banned SET active = FALSE
		 WHERE active AND unbandate <= $1 AND unbandate <> bandate`, r.now().Unix())
	if err != nil {
		return fmt.Errorf("deactivating expired account bans: %w", err)
	}
	return nil
}

// ActiveAccountBan returns the active ban of the account, nil when none.
func (r *BanRepository) ActiveAccountBan(ctx context.Context, accountID uint32) (*model.AccountBan, error) {
	var banDate, unbanDate int64
	err := r.pool.QueryRow(ctx,
		`SELECT bandate, unbandate FROM account_banned
		 WHERE id = $1 AND active
		 ORDER BY bandate DESC LIMIT 1`, int32(accountID),
	).Scan(&banDate, &unbanDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying ban of account %d: %w", accountID, err)
	}
	return &model.AccountBan{
		BanDate:   time.Unix(banDate, 0),
		UnbanDate: time.Unix(unbanDate, 0),
	}, nil
}

// BanAccount inserts an active account ban lasting d (0 = permanent).
func (r *BanRepository) BanAccount(ctx context.Context, accountID uint32, d time.Duration, bannedBy, reason string) error {
	now := r.now().Unix()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_banned (id, bandate, unbandate, bannedby, banreason, active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 ON CONFLICT (id, bandate) DO NOTHING`,
		int32(accountID), now, now+int64(d/time.Second), bannedBy, reason)
	if err != nil {
		return fmt.Errorf("banning account %d: %w", accountID, err)
	}
	return nil
}

// BanIP inserts an IP ban lasting d (0 = permanent).
func (r *BanRepository) BanIP(ctx context.Context, ip string, d time.Duration, bannedBy, reason string) error {
	now := r.now().Unix()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ip_banned (ip, bandate, unbandate, bannedby, banreason)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (ip, bandate) DO NOTHING`,
		ip, now, now+int64(d/time.Second), bannedBy, reason)
	if err != nil {
		return fmt.Errorf("banning ip %s: %w", ip, err)
	}
	return nil
}
