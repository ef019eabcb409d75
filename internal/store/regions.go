package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jobfunnel-engine/internal/match"
)

// SetUserRegion stores the user's single region restriction, replacing
// any previous one. The region is normalized the same way keywords are
// so matching against job locations stays case-insensitive. Returns the
// stored form.
func SetUserRegion(ctx context.Context, db *sql.DB, userID int64, region string) (string, error) {
	normalized := match.NormalizeKeyword(region)
	if normalized == "" {
		return "", errors.New("region must not be empty")
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO user_regions(user_id, region)
VALUES(?,?)
ON CONFLICT(user_id) DO UPDATE SET region = excluded.region;`,
		userID, normalized,
	)
	if err != nil {
		return "", fmt.Errorf("set region user=%d: %w", userID, err)
	}
	return normalized, nil
}

// GetUserRegion returns the user's region, or "" when none is set.
func GetUserRegion(ctx context.Context, db *sql.DB, userID int64) (string, error) {
	var region string
	err := db.QueryRowContext(ctx,
		`SELECT region FROM user_regions WHERE user_id = ?;`, userID,
	).Scan(&region)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return region, nil
}

// ClearUserRegion removes the restriction. ErrNotFound when the user
// had none.
func ClearUserRegion(ctx context.Context, db *sql.DB, userID int64) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM user_regions WHERE user_id = ?;`, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
