package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/realmd/internal/model"
)

// RecordedBan — бан, вставленный через MockStore.
type RecordedBan struct {
	AccountID uint32 // 0 для IP бана
	IP        string
	Duration  time.Duration
	BannedBy  string
	Reason    string
	At        time.Time
}

// MockStore — in-memory имплементация репозиториев аккаунтов, банов и
// реалмов для unit тестов. Не требует реального PostgreSQL.
type MockStore struct {
	mu sync.RWMutex

	accounts      map[string]*mockAccount
	nextID        uint32
	accountBans   map[uint32]model.AccountBan
	ipBans        map[string]time.Time // ip → unban (zero = навсегда)
	countries     map[string]string
	characters    map[[2]uint32]uint8
	realms        []model.Realm
	bans          []RecordedBan
	failedLogs    []string
	logonProofs   []model.LogonProofUpdate
	verifierSaves int

	// Err, если задан, возвращается всеми методами.
	Err error

	// Now задаёт текущее время для проверки банов.
	Now func() time.Time
}

type mockAccount struct {
	model.Account
	sessionKey   string
	failedLogins int
}

// NewMockStore создаёт пустой MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		accounts:    make(map[string]*mockAccount),
		accountBans: make(map[uint32]model.AccountBan),
		ipBans:      make(map[string]time.Time),
		countries:   make(map[string]string),
		characters:  make(map[[2]uint32]uint8),
		Now:         time.Now,
	}
}

// AddAccount добавляет аккаунт и возвращает его id. PassHash считается
// вызывающим (srp6.CredentialHash).
func (m *MockStore) AddAccount(acc model.Account) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(acc)
}

func (m *MockStore) addLocked(acc model.Account) uint32 {
	m.nextID++
	acc.ID = m.nextID
	acc.Username = strings.ToUpper(acc.Username)
	m.accounts[acc.Username] = &mockAccount{Account: acc}
	return acc.ID
}

// GetAccount получает аккаунт по имени.
func (m *MockStore) GetAccount(_ context.Context, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	acc, ok := m.accounts[strings.ToUpper(username)]
	if !ok {
		return nil, nil
	}

	// Возвращаем копию чтобы избежать race conditions
	cp := acc.Account
	return &cp, nil
}

// GetAccountID возвращает id аккаунта.
func (m *MockStore) GetAccountID(_ context.Context, username string) (uint32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, false, m.Err
	}

	acc, ok := m.accounts[strings.ToUpper(username)]
	if !ok {
		return 0, false, nil
	}
	return acc.ID, true, nil
}

// SetVerifier сохраняет v и s.
func (m *MockStore) SetVerifier(_ context.Context, accountID uint32, v, s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	acc := m.byIDLocked(accountID)
	if acc == nil {
		return fmt.Errorf("account %d not found", accountID)
	}
	acc.Verifier = v
	acc.Salt = s
	m.verifierSaves++
	return nil
}

// UpdateLogonProof сохраняет K и сбрасывает счётчик неудачных входов.
func (m *MockStore) UpdateLogonProof(_ context.Context, upd model.LogonProofUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	acc := m.byIDLocked(upd.AccountID)
	if acc == nil {
		return fmt.Errorf("account %d not found", upd.AccountID)
	}
	acc.sessionKey = upd.SessionKey
	acc.LastIP = upd.LastIP
	acc.failedLogins = 0
	m.logonProofs = append(m.logonProofs, upd)
	return nil
}

// IncrementFailedLogins увеличивает счётчик неудачных входов и сбрасывает
// его на попытке, достигшей maxCount.
func (m *MockStore) IncrementFailedLogins(_ context.Context, username string, maxCount int) (*model.FailedLogin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	acc, ok := m.accounts[strings.ToUpper(username)]
	if !ok {
		return nil, nil
	}
	acc.failedLogins++
	fl := &model.FailedLogin{AccountID: acc.ID, FailedLogins: acc.failedLogins}
	if maxCount > 0 && acc.failedLogins >= maxCount {
		acc.failedLogins = 0
		fl.FailedLogins = maxCount
		fl.ThresholdReached = true
	}
	return fl, nil
}

// LogFailedLogin записывает неудачную попытку.
func (m *MockStore) LogFailedLogin(_ context.Context, username, ip, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.failedLogs = append(m.failedLogs, fmt.Sprintf("%s %s %s", username, ip, comment))
	return nil
}

// GetSessionKey возвращает сохранённый K.
func (m *MockStore) GetSessionKey(_ context.Context, username string) (*model.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	acc, ok := m.accounts[strings.ToUpper(username)]
	if !ok {
		return nil, nil
	}
	return &model.SessionRecord{
		AccountID:     acc.ID,
		SessionKey:    acc.sessionKey,
		SecurityLevel: acc.SecurityLevel,
	}, nil
}

// CountryForIP возвращает страну, заданную через SetCountry.
func (m *MockStore) CountryForIP(_ context.Context, ip string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.countries[ip], nil
}

// CreateLegacyAccount создаёт аккаунт по хешу.
func (m *MockStore) CreateLegacyAccount(_ context.Context, username, passHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	if _, ok := m.accounts[strings.ToUpper(username)]; ok {
		return fmt.Errorf("account %q already exists", username)
	}
	m.addLocked(model.Account{Username: username, PassHash: passHash})
	return nil
}

// NumCharacters возвращает число персонажей на реалме.
func (m *MockStore) NumCharacters(_ context.Context, realmID, accountID uint32) (uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.characters[[2]uint32{realmID, accountID}], nil
}

// PurgeExpiredIPBans удаляет истёкшие IP баны.
func (m *MockStore) PurgeExpiredIPBans(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	now := m.Now()
	for ip, unban := range m.ipBans {
		if !unban.IsZero() && !unban.After(now) {
			delete(m.ipBans, ip)
		}
	}
	return nil
}

// IsIPBanned проверяет IP бан.
func (m *MockStore) IsIPBanned(_ context.Context, ip string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.ipBans[ip]
	return ok, nil
}

// DeactivateExpiredAccountBans снимает истёкшие баны аккаунтов.
func (m *MockStore) DeactivateExpiredAccountBans(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	now := m.Now()
	for id, ban := range m.accountBans {
		if !ban.Permanent() && !ban.UnbanDate.After(now) {
			delete(m.accountBans, id)
		}
	}
	return nil
}

// ActiveAccountBan возвращает активный бан аккаунта.
func (m *MockStore) ActiveAccountBan(_ context.Context, accountID uint32) (*model.AccountBan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	ban, ok := m.accountBans[accountID]
	if !ok {
		return nil, nil
	}
	return &ban, nil
}

// BanAccount банит аккаунт на d (0 = навсегда).
func (m *MockStore) BanAccount(_ context.Context, accountID uint32, d time.Duration, bannedBy, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	now := m.Now()
	m.accountBans[accountID] = model.AccountBan{BanDate: now, UnbanDate: now.Add(d)}
	m.bans = append(m.bans, RecordedBan{AccountID: accountID, Duration: d, BannedBy: bannedBy, Reason: reason, At: now})
	return nil
}

// BanIP банит IP на d (0 = навсегда).
func (m *MockStore) BanIP(_ context.Context, ip string, d time.Duration, bannedBy, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	now := m.Now()
	var unban time.Time
	if d > 0 {
		unban = now.Add(d)
	}
	m.ipBans[ip] = unban
	m.bans = append(m.bans, RecordedBan{IP: ip, Duration: d, BannedBy: bannedBy, Reason: reason, At: now})
	return nil
}

// LoadRealms возвращает реалмы, заданные через SetRealms.
func (m *MockStore) LoadRealms(_ context.Context) ([]model.Realm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]model.Realm, len(m.realms))
	copy(out, m.realms)
	return out, nil
}

// SetRealms задаёт список реалмов.
func (m *MockStore) SetRealms(realms ...model.Realm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.realms = realms
}

// SetCountry задаёт страну для IP (ip2nation).
func (m *MockStore) SetCountry(ip, country string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countries[ip] = country
}

// SetCharacters задаёт число персонажей аккаунта на реалме.
func (m *MockStore) SetCharacters(realmID, accountID uint32, n uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[[2]uint32{realmID, accountID}] = n
}

// SetAccountBan задаёт бан аккаунта напрямую.
func (m *MockStore) SetAccountBan(accountID uint32, ban model.AccountBan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountBans[accountID] = ban
}

// SetIPBan задаёт IP бан напрямую (zero unban = навсегда).
func (m *MockStore) SetIPBan(ip string, unban time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ipBans[ip] = unban
}

// SetSessionKey задаёт K (hex) аккаунта, как после успешного логина.
func (m *MockStore) SetSessionKey(username, hexKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[strings.ToUpper(username)]; ok {
		acc.sessionKey = hexKey
	}
}

// SetErr задаёт ошибку, возвращаемую всеми методами.
func (m *MockStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Account возвращает копию аккаунта (для проверок в тестах).
func (m *MockStore) Account(username string) (model.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[strings.ToUpper(username)]
	if !ok {
		return model.Account{}, false
	}
	return acc.Account, true
}

// SessionKey возвращает сохранённый K (hex).
func (m *MockStore) SessionKey(username string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[strings.ToUpper(username)]; ok {
		return acc.sessionKey
	}
	return ""
}

// FailedLogins возвращает текущий счётчик неудачных входов.
func (m *MockStore) FailedLogins(username string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[strings.ToUpper(username)]; ok {
		return acc.failedLogins
	}
	return 0
}

// Bans возвращает все вставленные баны.
func (m *MockStore) Bans() []RecordedBan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedBan, len(m.bans))
	copy(out, m.bans)
	return out
}

// FailedLoginLogs возвращает записи неудачных попыток.
func (m *MockStore) FailedLoginLogs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.failedLogs))
	copy(out, m.failedLogs)
	return out
}

// LogonProofs возвращает сохранённые результаты LOGON_PROOF.
func (m *MockStore) LogonProofs() []model.LogonProofUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.LogonProofUpdate, len(m.logonProofs))
	copy(out, m.logonProofs)
	return out
}

// VerifierSaves возвращает число вызовов SetVerifier.
func (m *MockStore) VerifierSaves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verifierSaves
}

func (m *MockStore) byIDLocked(id uint32) *mockAccount {
	for _, acc := range m.accounts {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}
