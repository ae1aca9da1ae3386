package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunPhotoRepository persists photo metadata using Bun.
type BunPhotoRepository struct {
	db bun.IDB
}

// NewBunPhotoRepository constructs a repository backed by Bun.
func NewBunPhotoRepository(db bun.IDB) *BunPhotoRepository {
	return &BunPhotoRepository{db: db}
}

// Insert creates the photo row. A taken (farm, local photo id) pair is skipped
// by the database and reported as ErrDuplicate.
func (r *BunPhotoRepository) Insert(ctx context.Context, photo *models.ScoutingPhoto) error {
	result, err := r.db.NewInsert().
		Model(photo).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("photo %s: %w", photo.LocalPhotoID, ErrDuplicate)
		}
		return fmt.Errorf("insert photo: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("photo %s: %w", photo.LocalPhotoID, ErrDuplicate)
	}
	return nil
}

// FindByLocalID resolves a device photo id within a farm.
func (r *BunPhotoRepository) FindByLocalID(ctx context.Context, farmID, localPhotoID string) (*models.ScoutingPhoto, error) {
	photo := new(models.ScoutingPhoto)
	err := r.db.NewSelect().
		Model(photo).
		Where("sp.farm_id = ?", farmID).
		Where("sp.local_photo_id = ?", localPhotoID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("photo %s not found", localPhotoID)
		}
		return nil, fmt.Errorf("query photo: %w", err)
	}
	return photo, nil
}

// ConfirmUpload records the object key when the stored version still equals
// expectedVersion.
func (r *BunPhotoRepository) ConfirmUpload(ctx context.Context, photo *models.ScoutingPhoto, objectKey string, expectedVersion int64, stamp ChangeStamp) error {
	result, err := r.db.NewUpdate().
		Model((*models.ScoutingPhoto)(nil)).
		Set("object_key = ?", objectKey).
		Set("sync_status = ?", models.PhotoSynced).
		Set("version = version + 1").
		Set("change_seq = ?", stamp.Seq).
		Set("updated_at = ?", stamp.At).
		Where("id = ?", photo.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("confirm photo upload: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("photo %s: %w", photo.ID, ErrStaleVersion)
	}

	key := objectKey
	photo.ObjectKey = &key
	photo.SyncStatus = models.PhotoSynced
	photo.Version = expectedVersion + 1
	photo.ChangeSeq = stamp.Seq
	photo.UpdatedAt = stamp.At
	return nil
}

// ListBySession returns a session's photos in registration order.
func (r *BunPhotoRepository) ListBySession(ctx context.Context, sessionID string) ([]models.ScoutingPhoto, error) {
	photos := []models.ScoutingPhoto{}
	err := r.db.NewSelect().
		Model(&photos).
		Where("sp.session_id = ?", sessionID).
		Order("sp.created_at ASC", "sp.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// ListChanged returns the farm's photos stamped after the window, oldest first.
func (r *BunPhotoRepository) ListChanged(ctx context.Context, farmID string, window ChangeWindow) ([]models.ScoutingPhoto, error) {
	photos := []models.ScoutingPhoto{}
	q := r.db.NewSelect().
		Model(&photos).
		Where("sp.farm_id = ?", farmID)
	if window.AfterSeq != nil {
		q = q.Where("sp.change_seq > ?", *window.AfterSeq)
	} else {
		q = q.Where("sp.updated_at > ?", window.After)
	}

	if err := q.Order("sp.change_seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list changed photos: %w", err)
	}
	return photos, nil
}
