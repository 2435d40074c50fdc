package db

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/realmd/internal/model"
)

// logs_ip_actions.type of a failed password.
const ipActionFailedLogin = 1

// AccountRepository реализует auth.AccountRepository для PostgreSQL.
// Имена аккаунтов хранятся в верхнем регистре.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository создаёт новый PostgreSQL repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetAccount возвращает аккаунт по имени.
// Возвращает nil, nil если аккаунт не найден.
func (r *AccountRepository) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	var (
		acc   model.Account
		id    int32
		level int16
	)
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.username, a.sha_pass_hash, a.locked, a.lock_country, a.last_ip,
		        COALESCE(MAX(aa.gmlevel), 0), a.v, a.s, a.token_key
		 FROM account a
		 LEFT JOIN account_access aa ON aa.id = a.id
		 WHERE a.username = $1
		 GROUP BY a.id`, strings.ToUpper(username),
	).Scan(&id, &acc.Username, &acc.PassHash, &acc.Locked, &acc.LockCountry, &acc.LastIP,
		&level, &acc.Verifier, &acc.Salt, &acc.TokenKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %q: %w", username, err)
	}

	acc.ID = uint32(id)
	acc.SecurityLevel = uint8(max(level, 0))
	return &acc, nil
}

// GetAccountID returns the id of username.
func (r *AccountRepository) GetAccountID(ctx context.Context, username string) (uint32, bool, error) {
	var id int32
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM account WHERE username = $1`, strings.ToUpper(username),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying account id %q: %w", username, err)
	}
	return uint32(id), true, nil
}

// SetVerifier stores v and s.
func (r *AccountRepository) SetVerifier(ctx context.Context, accountID uint32, v, s string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE account SET v = $1, s = $2 WHERE id = $3`, v, s, int32(accountID))
	if err != nil {
		return fmt.Errorf("storing verifier of account %d: %w", accountID, err)
	}
	return nil
}

// UpdateLogonProof persists the session key and login metadata.
func (r *AccountRepository) UpdateLogonProof(ctx context.Context, upd model.LogonProofUpdate) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE account
		 SET session_key = $1, last_ip = $2, last_login = NOW(), locale = $3, failed_logins = 0, os = $4
		 WHERE id = $5`,
		upd.SessionKey, upd.LastIP, int16(upd.Locale), upd.OS, int32(upd.AccountID))
	if err != nil {
		return fmt.Errorf("updating logon proof of account %d: %w", upd.AccountID, err)
	}
	return nil
}

// IncrementFailedLogins bumps the counter, or resets it when the new value
// reaches maxCount, in one statement. The row lock of the UPDATE orders
// concurrent failures, so exactly one of them crosses the threshold.
func (r *AccountRepository) IncrementFailedLogins(ctx context.Context, username string, maxCount int) (*model.FailedLogin, error) {
	var id, count int32
	err := r.pool.QueryRow(ctx,
		`UPDATE account
		    SET failed_logins = CASE WHEN $2 > 0 AND failed_logins + 1 >= $2 THEN 0
		                             ELSE failed_logins + 1 END
		  WHERE username = $1
		  RETURNING id, failed_logins`,
		strings.ToUpper(username), int32(maxCount),
	).Scan(&id, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("incrementing failed logins of %q: %w", username, err)
	}

	fl := &model.FailedLogin{AccountID: uint32(id), FailedLogins: int(count)}
	if maxCount > 0 && count == 0 {
		fl.FailedLogins = maxCount
		fl.ThresholdReached = true
	}
	return fl, nil
}

// LogFailedLogin inserts a logs_ip_actions row.
func (r *AccountRepository) LogFailedLogin(ctx context.Context, username, ip, comment string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO logs_ip_actions (account_id, character_guid, type, ip, systemnote, unixtime)
		 VALUES ((SELECT id FROM account WHERE username = $1), 0, $2, $3, $4, $5)`,
		strings.ToUpper(username), ipActionFailedLogin, ip, comment, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("logging failed login of %q: %w", username, err)
	}
	return nil
}

// GetSessionKey возвращает сохранённый K для reconnect.
// Возвращает nil, nil если аккаунт не найден.
func (r *AccountRepository) GetSessionKey(ctx context.Context, username string) (*model.SessionRecord, error) {
	var (
		rec   model.SessionRecord
		id    int32
		level int16
	)
	err := r.pool.QueryRow(ctx,
		`SELECT a.session_key, a.id, COALESCE(MAX(aa.gmlevel), 0)
		 FROM account a
		 LEFT JOIN account_access aa ON aa.id = a.id
		 WHERE a.username = $1
		 GROUP BY a.id`, strings.ToUpper(username),
	).Scan(&rec.SessionKey, &id, &level)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session key of %q: %w", username, err)
	}
	rec.AccountID = uint32(id)
	rec.SecurityLevel = uint8(max(level, 0))
	return &rec, nil
}

// CountryForIP looks the address up in ip2nation. Non-IPv4 addresses and
// addresses below every range resolve to "".
func (r *AccountRepository) CountryForIP(ctx context.Context, ip string) (string, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Unmap().Is4() {
		return "", nil
	}
	b := addr.Unmap().As4()
	num := int64(b[0])<<24 | int64(b[1])<<16 | int64(b[2])<<8 | int64(b[3])

	var country string
	err = r.pool.QueryRow(ctx,
		`SELECT country FROM ip2nation WHERE ip < $1 ORDER BY ip DESC LIMIT 1`, num,
	).Scan(&country)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying country of %s: %w", ip, err)
	}
	return country, nil
}

// CreateLegacyAccount inserts the account and its realmcharacters rows in
// one transaction.
func (r *AccountRepository) CreateLegacyAccount(ctx context.Context, username, passHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for account %q: %w", username, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int32
	err = tx.QueryRow(ctx,
		`INSERT INTO account (username, sha_pass_hash) VALUES ($1, $2) RETURNING id`,
		strings.ToUpper(username), passHash,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("creating account %q: %w", username, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO realmcharacters (realmid, acctid, numchars)
		 SELECT id, $1, 0 FROM realmlist`, id)
	if err != nil {
		return fmt.Errorf("initializing realm characters of %q: %w", username, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing account %q: %w", username, err)
	}
	return nil
}

// NumCharacters returns how many characters the account has on a realm.
func (r *AccountRepository) NumCharacters(ctx context.Context, realmID, accountID uint32) (uint8, error) {
	var n int16
	err := r.pool.QueryRow(ctx,
		`SELECT numchars FROM realmcharacters WHERE realmid = $1 AND acctid = $2`,
		int32(realmID), int32(accountID),
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying characters of account %d on realm %d: %w", accountID, realmID, err)
	}
	return uint8(n), nil
}
