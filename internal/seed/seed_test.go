package seed

import (
	"testing"

	"fieldtasks/internal/database"
	"fieldtasks/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestRunIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	var regions, admins, clients, assignments int64
	require.NoError(t, db.Model(&model.Region{}).Count(&regions).Error)
	require.NoError(t, db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&admins).Error)
	require.NoError(t, db.Model(&model.User{}).Where("role = ?", model.RoleClient).Count(&clients).Error)
	require.NoError(t, db.Model(&model.RegionAssignment{}).Count(&assignments).Error)

	assert.EqualValues(t, 4, regions)
	assert.EqualValues(t, 4, admins)
	assert.EqualValues(t, 12, clients)
	assert.EqualValues(t, 4, assignments)

	// Demo credentials: password equals username.
	var admin model.User
	require.NoError(t, db.First(&admin, "username = ?", "tnadmin").Error)
	assert.Equal(t, "Tamil Nadu", admin.Region)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("tnadmin")))
}
