// Package processor imports TAC catalogue CSV drops from a folder into a unit database.
package processor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"refurb-app/models"
	"refurb-app/repositories"
	"refurb-app/services/catalog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier is told about every imported file.
type Notifier interface {
	TacImported(file string, inserted, updated int, result catalog.ImportResult) error
}

type FileResult struct {
	File     string
	Skipped  bool
	Inserted int
	Updated  int
	Result   catalog.ImportResult
}

type Processor struct {
	db           *gorm.DB
	unit         string
	dir          string
	processedDir string
	notifier     Notifier
	cache        *catalog.ModelCache
	log          *zap.Logger
}

// New watches dir; imported files are moved to the sibling "processed" folder.
func New(db *gorm.DB, unit, dir string) *Processor {
	return &Processor{
		db:           db,
		unit:         unit,
		dir:          dir,
		processedDir: filepath.Join(filepath.Dir(filepath.Clean(dir)), "processed"),
		log:          zap.L(),
	}
}

func (p *Processor) WithNotifier(n Notifier) *Processor {
	p.notifier = n
	return p
}

func (p *Processor) WithCache(c *catalog.ModelCache) *Processor {
	p.cache = c
	return p
}

func (p *Processor) ProcessedDir() string {
	return p.processedDir
}

// Run imports every pending CSV file in name order. A failing file is logged and left in place.
func (p *Processor) Run(ctx context.Context) ([]FileResult, error) {
	files, err := filepath.Glob(filepath.Join(p.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var results []FileResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.processFile(ctx, file)
		if err != nil {
			p.log.Error("tac file import failed", zap.String("file", file), zap.Error(err))
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

func (p *Processor) processFile(ctx context.Context, filename string) (*FileResult, error) {
	base := filepath.Base(filename)
	res := &FileResult{File: base}

	var existing models.FileLog
	err := p.db.WithContext(ctx).Where("filename = ?", base).First(&existing).Error
	if err == nil {
		p.log.Warn("tac file already processed, skipping", zap.String("file", base))
		res.Skipped = true
		return res, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	records, err := readCSV(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", base, err)
	}

	rows, result := catalog.ParseTacRows(records)
	res.Result = result
	if len(rows) > 0 {
		res.Inserted, res.Updated, err = repositories.NewCatalogRepository(p.db).UpsertTacCodes(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", base, err)
		}
	}

	if err := p.db.WithContext(ctx).Create(&models.FileLog{
		Filename:     base,
		DateModified: info.ModTime(),
		Rows:         result.TotalRows,
	}).Error; err != nil {
		return nil, err
	}

	if err := p.moveToProcessed(filename); err != nil {
		return nil, fmt.Errorf("move %s: %w", base, err)
	}

	if p.cache != nil {
		p.cache.InvalidateUnit(p.unit)
	}

	p.log.Info("tac file imported",
		zap.String("file", base),
		zap.Int("rows", result.TotalRows),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("errors", result.ErrorCount))

	if p.notifier != nil {
		if err := p.notifier.TacImported(base, res.Inserted, res.Updated, result); err != nil {
			p.log.Error("tac import mail failed", zap.String("file", base), zap.Error(err))
		}
	}
	return res, nil
}

func readCSV(filename string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func (p *Processor) moveToProcessed(filename string) error {
	if err := os.MkdirAll(p.processedDir, os.ModePerm); err != nil {
		return err
	}

	target := filepath.Join(p.processedDir, filepath.Base(filename))
	if err := os.Rename(filename, target); err != nil {
		p.log.Warn("rename failed, copying instead", zap.String("file", filename), zap.Error(err))
		return copyAndDeleteFile(filename, target)
	}
	return nil
}

func copyAndDeleteFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	destinationFile, err := os.Create(dst)
	if err != nil {
		sourceFile.Close()
		return err
	}

	_, err = io.Copy(destinationFile, sourceFile)
	sourceFile.Close()
	if cerr := destinationFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Remove(src)
}
