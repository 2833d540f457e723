package seed

import (
	"strconv"
	"strings"
	"time"

	"fieldtasks/internal/model"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var regionDescriptions = map[model.RegionCode]string{
	model.RegionTamilNadu:     "Tamil Nadu state in southern India",
	model.RegionAndhraPradesh: "Andhra Pradesh state in southern India",
	model.RegionTelangana:     "Telangana state in southern India",
	model.RegionOdisha:        "Odisha state in eastern India",
}

var regionAdmins = map[model.RegionCode]string{
	model.RegionTamilNadu:     "tnadmin",
	model.RegionAndhraPradesh: "apadmin",
	model.RegionTelangana:     "tsadmin",
	model.RegionOdisha:        "odadmin",
}

// Run populates the database with demo data: the four regions, a
// superadmin, one admin per region, and three clients per region.
// Idempotent — existing rows are left alone, so it is safe on every boot.
func Run(db *gorm.DB) error {
	log.Info("seeding demo data")

	regions := make(map[model.RegionCode]*model.Region, len(model.RegionCodes))
	for _, code := range model.RegionCodes {
		region := &model.Region{Code: code, Description: regionDescriptions[code]}
		if err := db.Where(&model.Region{Code: code}).FirstOrCreate(region).Error; err != nil {
			return errors.Wrapf(err, "seed region %s", code)
		}
		regions[code] = region
	}

	if _, err := ensureUser(db, "superadmin", "superadmin@example.com", model.RoleSuperAdmin, ""); err != nil {
		return err
	}

	for _, code := range model.RegionCodes {
		username := regionAdmins[code]
		admin, err := ensureUser(db, username, username+"@example.com", model.RoleAdmin, code.DisplayName())
		if err != nil {
			return err
		}

		assignment := &model.RegionAssignment{
			AdminID:    admin.ID,
			RegionID:   regions[code].ID,
			AssignedAt: time.Now(),
		}
		err = db.Where("admin_id = ?", admin.ID).FirstOrCreate(assignment).Error
		if err != nil {
			return errors.Wrapf(err, "seed assignment for %s", username)
		}

		// Three demo clients per region, named after the region's
		// first word: tamilclient1, odishaclient2, ...
		prefix := strings.ToLower(strings.SplitN(string(code), "_", 2)[0])
		for i := 1; i <= 3; i++ {
			username := prefix + "client" + strconv.Itoa(i)
			if _, err := ensureUser(db, username, username+"@example.com", model.RoleClient, code.DisplayName()); err != nil {
				return err
			}
		}
	}

	log.Info("demo data ready")
	return nil
}

// ensureUser creates the user if missing. Demo passwords equal the
// username, same convention as the environments this mirrors.
func ensureUser(db *gorm.DB, username, email string, role model.Role, region string) (*model.User, error) {
	var user model.User
	err := db.Where("username = ?", username).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(err, "seed lookup %s", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(username), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "seed password hash")
	}

	user = model.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     role,
		Region:   region,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, errors.Wrapf(err, "seed user %s", username)
	}
	log.WithField("username", username).Info("created demo user")
	return &user, nil
}
