package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/realmd/internal/model"
)

// RealmRepository reads the realm directory and the known client builds.
type RealmRepository struct {
	pool *pgxpool.Pool
}

// NewRealmRepository создаёт новый PostgreSQL repository.
func NewRealmRepository(pool *pgxpool.Pool) *RealmRepository {
	return &RealmRepository{pool: pool}
}

// LoadRealms returns every realm with resolvable addresses. Rows with an
// unparsable address are logged and skipped.
func (r *RealmRepository) LoadRealms(ctx context.Context) ([]model.Realm, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, address, local_address, local_subnet_mask, port, icon, flag,
		        timezone, allowed_security_level, population, gamebuild
		 FROM realmlist
		 WHERE flag <> 3
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying realms: %w", err)
	}
	defer rows.Close()

	var realms []model.Realm
	for rows.Next() {
		var (
			id, port, build          int32
			name, ext, local, mask   string
			icon, flag, tz, secLevel int16
			population               float32
		)
		if err := rows.Scan(&id, &name, &ext, &local, &mask, &port, &icon, &flag,
			&tz, &secLevel, &population, &build); err != nil {
			return nil, fmt.Errorf("scanning realm: %w", err)
		}

		addrs, err := parseAddrs(ext, local, mask)
		if err != nil {
			slog.Error("skipping realm with bad address", "realm", name, "err", err)
			continue
		}

		realms = append(realms, model.Realm{
			ID:                   uint32(id),
			Name:                 name,
			ExternalAddress:      addrs[0],
			LocalAddress:         addrs[1],
			LocalSubnetMask:      addrs[2],
			Port:                 uint16(port),
			Icon:                 uint8(icon),
			Flag:                 uint8(flag),
			Timezone:             uint8(tz),
			AllowedSecurityLevel: uint8(min(max(secLevel, 0), 3)),
			Population:           population,
			Build:                uint32(build),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating realms: %w", err)
	}
	return realms, nil
}

// LoadBuilds returns the build_info table.
func (r *RealmRepository) LoadBuilds(ctx context.Context) ([]model.RealmBuildInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT build, major_version, minor_version, bugfix_version, hotfix_version
		 FROM build_info ORDER BY build`)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var builds []model.RealmBuildInfo
	for rows.Next() {
		var (
			build               int32
			major, minor, patch int16
			hotfix              string
		)
		if err := rows.Scan(&build, &major, &minor, &patch, &hotfix); err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}

		info := model.RealmBuildInfo{
			Build:  uint32(build),
			Major:  uint8(major),
			Minor:  uint8(minor),
			Bugfix: uint8(patch),
			Hotfix: ' ',
		}
		if hotfix != "" {
			info.Hotfix = hotfix[0]
		}
		builds = append(builds, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}
	return builds, nil
}

func parseAddrs(s ...string) ([]netip.Addr, error) {
	out := make([]netip.Addr, len(s))
	for i, v := range s {
		a, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", v, err)
		}
		out[i] = a
	}
	return out, nil
}
