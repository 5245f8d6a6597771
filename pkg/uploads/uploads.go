// Package uploads stores receipt images, scans them and links the resulting
// receipt to the upload row.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartreceipts/models"
	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/ocr"
	"smartreceipts/pkg/store"
)

var ErrNotFound = errors.New("upload not found")

// Scanner turns a stored image into a receipt.
type Scanner interface {
	ScanFile(ctx context.Context, path string) (nfce.Receipt, error)
}

// Service manages uploaded files below Base.
type Service struct {
	db      *gorm.DB
	scanner Scanner
	Base    string
}

func New(db *gorm.DB, scanner Scanner, base string) *Service {
	return &Service{db: db, scanner: scanner, Base: base}
}

// Path is the absolute location of an upload on disk.
func (s *Service) Path(up models.Upload) string {
	return filepath.Join(s.Base, filepath.FromSlash(up.StorePath))
}

// Store copies r to <Base>/<userID>/<name> and records the upload. An
// existing file with the same name gets a numeric suffix.
func (s *Service) Store(ctx context.Context, userID uint, name string, r io.Reader, contentType string) (models.Upload, error) {
	name = sanitizeName(name)
	dir := filepath.Join(s.Base, strconv.FormatUint(uint64(userID), 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.Upload{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, final, err := createUnique(dir, name)
	if err != nil {
		return models.Upload{}, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(filepath.Join(dir, final))
		return models.Upload{}, fmt.Errorf("write %s: %w", final, err)
	}
	if err := f.Close(); err != nil {
		return models.Upload{}, err
	}
	up := models.Upload{
		UserID:      userID,
		FileName:    final,
		StorePath:   strconv.FormatUint(uint64(userID), 10) + "/" + final,
		ContentType: contentType,
	}
	if err := s.db.WithContext(ctx).Omit("User", "Receipt").Create(&up).Error; err != nil {
		os.Remove(filepath.Join(dir, final))
		return models.Upload{}, fmt.Errorf("db save upload: %w", err)
	}
	return up, nil
}

// Record creates an upload row for a file already below Base.
func (s *Service) Record(ctx context.Context, userID uint, relPath, contentType string) (models.Upload, error) {
	relPath = filepath.ToSlash(relPath)
	up := models.Upload{
		UserID:      userID,
		FileName:    filepath.Base(relPath),
		StorePath:   relPath,
		ContentType: contentType,
	}
	err := s.db.WithContext(ctx).
		Where(models.Upload{UserID: userID, StorePath: relPath}).
		Attrs(models.Upload{FileName: up.FileName, ContentType: contentType}).
		FirstOrCreate(&up).Error
	if err != nil {
		return models.Upload{}, fmt.Errorf("db save upload: %w", err)
	}
	return up, nil
}

// Process scans the upload, saves the receipt for the upload's owner and
// links it. On failure the upload is marked failed with the user-facing
// message and the scan error is returned.
func (s *Service) Process(ctx context.Context, up *models.Upload) (nfce.Receipt, error) {
	log := applog.ForContext(ctx).WithFields(logrus.Fields{"upload": up.ID, "user": up.UserID})
	up.Attempts++

	receipt, err := s.scanner.ScanFile(ctx, s.Path(*up))
	if err == nil {
		err = store.NewGorm(s.db).ForUser(up.UserID).Save(ctx, &receipt)
	}
	if err != nil {
		up.Failed = true
		up.FailedReason = ocr.UserMessage(err)
		if uerr := s.saveStatus(ctx, up); uerr != nil {
			log.WithError(uerr).Warn("could not record failed scan")
		}
		log.WithError(err).Info("scan failed")
		return nfce.Receipt{}, err
	}

	rid := receipt.ID
	up.ReceiptID = &rid
	up.Failed = false
	up.FailedReason = ""
	if err := s.saveStatus(ctx, up); err != nil {
		return receipt, fmt.Errorf("link receipt %d: %w", rid, err)
	}
	log.WithFields(logrus.Fields{"receipt": rid, "items": len(receipt.Items), "total": receipt.TotalAmount}).Info("scan stored")
	return receipt, nil
}

func (s *Service) saveStatus(ctx context.Context, up *models.Upload) error {
	return s.db.WithContext(ctx).Model(&models.Upload{}).Where("id = ?", up.ID).Updates(map[string]any{
		"receipt_id":    up.ReceiptID,
		"failed":        up.Failed,
		"failed_reason": up.FailedReason,
		"attempts":      up.Attempts,
	}).Error
}

// Failed returns failed uploads that have been tried fewer than maxAttempts
// times, oldest first.
func (s *Service) Failed(ctx context.Context, maxAttempts, limit int) ([]models.Upload, error) {
	var ups []models.Upload
	q := s.db.WithContext(ctx).Where("failed = ? AND receipt_id IS NULL", true)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("id asc").Find(&ups).Error; err != nil {
		return nil, err
	}
	return ups, nil
}

// List returns the newest uploads of userID (all users when 0).
func (s *Service) List(ctx context.Context, userID uint, limit int) ([]models.Upload, error) {
	var ups []models.Upload
	q := s.db.WithContext(ctx).Model(&models.Upload{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("id desc").Find(&ups).Error; err != nil {
		return nil, err
	}
	return ups, nil
}

// Get returns one upload visible to userID (any when 0).
func (s *Service) Get(ctx context.Context, userID, id uint) (models.Upload, error) {
	var up models.Upload
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.First(&up).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Upload{}, ErrNotFound
		}
		return models.Upload{}, err
	}
	return up, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0 || r < 32:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; i < 1000; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return nil, "", fmt.Errorf("too many files named %s", name)
}
