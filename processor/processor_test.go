package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"refurb-app/migration"
	"refurb-app/models"
	"refurb-app/services/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingNotifier struct {
	files []string
}

func (n *recordingNotifier) TacImported(file string, inserted, updated int, result catalog.ImportResult) error {
	n.files = append(n.files, file)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, migration.MigrateUnit(db))
	return db
}

const tacCSV = `tac,manufacturer,model,model_no,colors,storage
35328211,Apple,iPhone 13,A2633,Midnight;Blue,128|256
35467812,Samsung,Galaxy S22,SM-S901B,,
1234,Nokia,3310,,,
`

func writeDrop(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunImportsAndMovesFiles(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	inbox := filepath.Join(root, "unprocessed")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	src := writeDrop(t, inbox, "tac_20240101.csv", tacCSV)

	notifier := &recordingNotifier{}
	cache, err := catalog.NewModelCache(8)
	require.NoError(t, err)
	p := New(db, "refurb", inbox).WithNotifier(notifier).WithCache(cache)

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Skipped)
	assert.Equal(t, 2, results[0].Inserted)
	assert.Equal(t, 3, results[0].Result.TotalRows)
	assert.Equal(t, 1, results[0].Result.ErrorCount)

	var tac models.TacCode
	require.NoError(t, db.Where("tac_code = ?", "35328211").First(&tac).Error)
	assert.Equal(t, []string{"Midnight", "Blue"}, []string(tac.AvailableColors))
	assert.Equal(t, []string{"128", "256"}, []string(tac.StorageOptions))

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(root, "processed", "tac_20240101.csv"))
	assert.Equal(t, []string{"tac_20240101.csv"}, notifier.files)

	var logs int64
	db.Model(&models.FileLog{}).Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestRunSkipsFilesAlreadyLogged(t *testing.T) {
	db := openTestDB(t)
	inbox := filepath.Join(t.TempDir(), "unprocessed")
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	require.NoError(t, db.Create(&models.FileLog{Filename: "tac_20240101.csv"}).Error)
	src := writeDrop(t, inbox, "tac_20240101.csv", tacCSV)

	results, err := New(db, "refurb", inbox).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)
	assert.FileExists(t, src)

	var tacs int64
	db.Model(&models.TacCode{}).Count(&tacs)
	assert.Zero(t, tacs)
}
