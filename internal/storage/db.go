package storage

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skillscan/config"
	"skillscan/internal/appdirs"
	"skillscan/log"
)

var DB *gorm.DB
var appDirsResolver = appdirs.Resolve

// InitDB opens the run database at storage.db_path, or under the cache dir
// when unset.
func InitDB() error {
	dbPath, err := resolveDBPath()
	if err != nil {
		return err
	}
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	DB = db
	log.GetLogger().Info("Database initialized successfully", zap.String("path", dbPath))
	return nil
}

func Open(dbPath string) (*gorm.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(&Run{}, &GroupRecord{}, &SkillRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

func resolveDBPath() (string, error) {
	if p := config.Conf.Storage.DBPath; p != "" {
		return p, nil
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.DBPathFor(dirs), nil
}
