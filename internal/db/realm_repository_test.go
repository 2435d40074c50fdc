package db

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/realmd/internal/constants"
)

func TestRealmRepository_LoadRealms(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRealmRepository(pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO realmlist (name, address, local_address, local_subnet_mask, port, icon, flag, timezone, allowed_security_level, population, gamebuild)
		 VALUES ('Beta', '203.0.113.10', '10.0.0.5', '255.0.0.0', 8086, 1, 0, 8, 9, 1.5, 12340),
		        ('Alpha', '127.0.0.1', '127.0.0.1', '255.255.255.0', 8085, 0, 2, 1, 0, 0, 5875),
		        ('Hidden', '127.0.0.1', '127.0.0.1', '255.255.255.0', 8087, 0, 3, 1, 0, 0, 12340),
		        ('Broken', 'realm.example', '127.0.0.1', '255.255.255.0', 8088, 0, 0, 1, 0, 0, 12340)`)
	require.NoError(t, err)

	realms, err := repo.LoadRealms(ctx)
	require.NoError(t, err)
	require.Len(t, realms, 2)

	assert.Equal(t, "Alpha", realms[0].Name)
	assert.Equal(t, uint32(5875), realms[0].Build)

	beta := realms[1]
	assert.Equal(t, "Beta", beta.Name)
	assert.Equal(t, netip.MustParseAddr("203.0.113.10"), beta.ExternalAddress)
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), beta.LocalAddress)
	assert.Equal(t, netip.MustParseAddr("255.0.0.0"), beta.LocalSubnetMask)
	assert.Equal(t, uint16(8086), beta.Port)
	assert.Equal(t, uint8(1), beta.Icon)
	assert.Equal(t, uint8(8), beta.Timezone)
	assert.Equal(t, uint8(constants.SecAdministrator), beta.AllowedSecurityLevel)
	assert.Equal(t, float32(1.5), beta.Population)
}

func TestRealmRepository_LoadBuilds(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRealmRepository(pool)

	builds, err := repo.LoadBuilds(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, builds)

	var found bool
	for _, b := range builds {
		if b.Build == constants.TestBuild {
			found = true
			assert.Equal(t, uint8(3), b.Major)
			assert.Equal(t, uint8(3), b.Minor)
			assert.Equal(t, uint8(5), b.Bugfix)
			assert.Equal(t, byte('a'), b.Hotfix)
		}
	}
	assert.True(t, found)
}
