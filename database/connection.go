package database

import (
	"fmt"
	"regexp"
	"sync"

	"refurb-app/config"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	dbPool  = make(map[string]*gorm.DB)
	dbMutex sync.Mutex
)

var validDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidUnitName reports whether name can be used as a unit database name.
func ValidUnitName(name string) bool {
	return validDBName.MatchString(name)
}

func gormConfig() *gorm.Config {
	level := logger.Warn
	if config.IsDevelopment() {
		level = logger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	}
}

// OpenDatabaseConnection opens a fresh connection to one unit database without pooling it.
func OpenDatabaseConnection(dbName string) (*gorm.DB, error) {
	dialector, err := getDialector(dbName)
	if err != nil {
		return nil, err
	}
	return gorm.Open(dialector, gormConfig())
}

// GetDBConnection returns the pooled connection of a unit database, opening it on first use.
func GetDBConnection(dbName string) (*gorm.DB, error) {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if db, exists := dbPool[dbName]; exists {
		return db, nil
	}

	if !validDBName.MatchString(dbName) {
		return nil, fmt.Errorf("invalid database name %q", dbName)
	}

	db, err := OpenDatabaseConnection(dbName)
	if err != nil {
		return nil, err
	}

	dbPool[dbName] = db
	zap.L().Info("opened unit database", zap.String("unit", dbName), zap.String("driver", config.DBDriver))
	return db, nil
}

// RegisterDBConnection places an already opened connection in the pool under dbName.
func RegisterDBConnection(dbName string, db *gorm.DB) {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	dbPool[dbName] = db
}

// CloseAll closes and forgets every pooled connection.
func CloseAll() {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	for name, db := range dbPool {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		delete(dbPool, name)
	}
}

func ActiveDBConnections() []string {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	names := make([]string, 0, len(dbPool))
	for name := range dbPool {
		names = append(names, name)
	}
	return names
}

func getDialector(dbName string) (gorm.Dialector, error) {
	switch config.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			config.DBHost, config.DBUser, config.DBPassword, dbName, config.DBPort)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort, dbName)
		return mysql.Open(dsn), nil
	case "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort, dbName)
		return sqlserver.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dbName + ".db"), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", config.DBDriver)
	}
}

// EnsureDatabaseExists creates the unit database on the server when it is missing.
func EnsureDatabaseExists(dbName string) error {
	if !validDBName.MatchString(dbName) {
		return fmt.Errorf("invalid database name %q", dbName)
	}

	var (
		dialector gorm.Dialector
		stmt      string
	)

	switch config.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=postgres port=%s sslmode=disable",
			config.DBHost, config.DBUser, config.DBPassword, config.DBPort)
		dialector = postgres.Open(dsn)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/?charset=utf8mb4&parseTime=True&loc=Local",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort)
		dialector = mysql.Open(dsn)
		stmt = "CREATE DATABASE IF NOT EXISTS " + dbName
	case "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=master",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort)
		dialector = sqlserver.Open(dsn)
		stmt = "IF DB_ID('" + dbName + "') IS NULL CREATE DATABASE " + dbName
	case "sqlite":
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", config.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return fmt.Errorf("connect to database server: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if config.DBDriver == "postgres" {
		var exists bool
		if err := db.Raw("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = ?)", dbName).Scan(&exists).Error; err != nil {
			return err
		}
		if exists {
			return nil
		}
		stmt = "CREATE DATABASE " + dbName
	}

	return db.Exec(stmt).Error
}
