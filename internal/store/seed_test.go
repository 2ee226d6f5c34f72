package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedTable = `
| Username | Email | Role | Bio | Interests |
|----------|-------|------|-----|-----------|
| demo_user | demo@example.com | | Demo account for testing | |
| influencer1 | influencer1@example.com | Influencer | Fashion and lifestyle blogger | fashion, travel ,  |
| missing_email | | user | no email | |
not a table row
`

func TestParseSeedTable(t *testing.T) {
	users, err := ParseSeedTable(seedTable)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "demo_user", users[0].Username)
	assert.Equal(t, RoleUser, users[0].Role)
	assert.True(t, users[0].IsVisible)
	assert.Empty(t, users[0].Interests)

	assert.Equal(t, "influencer1", users[1].Username)
	assert.Equal(t, RoleInfluencer, users[1].Role)
	assert.Equal(t, []string{"fashion", "travel"}, users[1].Interests)
}

func TestParseSeedTableWithoutHeader(t *testing.T) {
	_, err := ParseSeedTable("just text\n")
	assert.Error(t, err)
}

func TestParseSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.md")
	require.NoError(t, os.WriteFile(path, []byte(seedTable), 0o600))

	users, err := ParseSeedFile(path)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = ParseSeedFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
