package cmd

import (
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/frahmantamala/civic-report/internal/core/common/database"
	userDatamodel "github.com/frahmantamala/civic-report/internal/core/datamodel/user"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with staff accounts",
	Long:  `Seed one superadmin and one admin per department for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := database.OpenGorm(sqlxDB.DB, gormLogger.Warn)
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		cost := cfg.Security.BCryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		accounts := staffAccounts()

		if resetData {
			emails := make([]string, 0, len(accounts))
			for _, a := range accounts {
				emails = append(emails, a.Email)
			}
			if err := db.Where("email IN ?", emails).Delete(&userDatamodel.User{}).Error; err != nil {
				log.Fatalf("failed to reset staff accounts: %v", err)
			}
			fmt.Println("Removed seeded staff accounts")
		}

		for _, a := range accounts {
			a.PasswordHash = string(hash)
			created, err := seedUser(db, a)
			if err != nil {
				log.Fatalf("failed to seed %s: %v", a.Email, err)
			}
			if created {
				fmt.Printf("Seeded %s user: %s\n", a.Role, a.Email)
			} else {
				fmt.Printf("%s already exists; skipped\n", a.Email)
			}
		}

		fmt.Println("Staff accounts seeded successfully")
	},
}

// staffAccounts lists the superadmin plus one admin for every department.
func staffAccounts() []userDatamodel.User {
	accounts := []userDatamodel.User{{
		Email:    "superadmin@civic.local",
		Name:     "Super Admin",
		Role:     string(user.RoleSuperAdmin),
		IsActive: true,
	}}

	for _, dept := range issue.Departments() {
		d := dept
		words := strings.FieldsFunc(strings.ToLower(dept), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		slug := strings.Join(words, "-")
		accounts = append(accounts, userDatamodel.User{
			Email:      fmt.Sprintf("%s@civic.local", slug),
			Name:       dept + " Admin",
			Role:       string(user.RoleAdmin),
			Department: &d,
			IsActive:   true,
		})
	}
	return accounts
}

func seedUser(db *gorm.DB, row userDatamodel.User) (bool, error) {
	var count int64
	if err := db.Model(&userDatamodel.User{}).Where("email = ?", row.Email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := db.Create(&row).Error; err != nil {
		return false, err
	}
	return true, nil
}
