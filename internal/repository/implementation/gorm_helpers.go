package implementation

import (
	"errors"
	"fmt"

	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/repository/specification"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// translateError maps driver errors onto engine error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.Wrap(apperror.ErrDuplicate, "constraint %s", pgErr.ConstraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Wrap(apperror.ErrDuplicate, "%v", err)
	}
	return err
}

// casUpdate writes m where the row still carries expectedVersion. Columns in
// omit are left as stored.
func casUpdate(db *gorm.DB, m interface{}, id interface{}, expectedVersion int64, omit ...string) error {
	res := db.Model(m).
		Where("id = ? AND version = ?", id, expectedVersion).
		Select("*").
		Omit(append([]string{"id", "created_at", clause.Associations}, omit...)...).
		Updates(m)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("id %v version %d: %w", id, expectedVersion, apperror.ErrStaleWrite)
	}
	return nil
}
