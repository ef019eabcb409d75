package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/match"
)

// UpsertKeyword stores a (user, keyword, weight) preference. The
// keyword is normalized first so uniqueness holds on what the matcher
// actually compares; re-adding overwrites the weight.
func UpsertKeyword(ctx context.Context, db *sql.DB, userID int64, keyword string, weight int) (string, error) {
	kw := match.NormalizeKeyword(keyword)
	if kw == "" {
		return "", errors.New("store: empty keyword")
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO user_keywords(user_id, keyword, weight)
VALUES(?,?,?)
ON CONFLICT(user_id, keyword) DO UPDATE SET weight = excluded.weight;`,
		userID, kw, weight,
	)
	if err != nil {
		return "", fmt.Errorf("upsert keyword %q for user %d: %w", kw, userID, err)
	}
	return kw, nil
}

// DeleteKeyword removes one preference. ErrNotFound when the user
// never had it.
func DeleteKeyword(ctx context.Context, db *sql.DB, userID int64, keyword string) error {
	kw := match.NormalizeKeyword(keyword)

	res, err := db.ExecContext(ctx,
		`DELETE FROM user_keywords WHERE user_id = ? AND keyword = ?;`,
		userID, kw,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListKeywords returns a user's preferences, strongest boost first.
func ListKeywords(ctx context.Context, db *sql.DB, userID int64) ([]domain.KeywordPref, error) {
	rows, err := db.QueryContext(ctx, `
SELECT user_id, keyword, weight
FROM user_keywords
WHERE user_id = ?
ORDER BY weight DESC, keyword ASC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.KeywordPref
	for rows.Next() {
		var p domain.KeywordPref
		if err := rows.Scan(&p.UserID, &p.Keyword, &p.Weight); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UserKeywordWeights returns the keyword→weight map the pipeline
// consumes. Unknown users get an empty map, not an error.
func UserKeywordWeights(ctx context.Context, db *sql.DB, userID int64) (map[string]int, error) {
	prefs, err := ListKeywords(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	weights := make(map[string]int, len(prefs))
	for _, p := range prefs {
		weights[p.Keyword] = p.Weight
	}
	return weights, nil
}

// WeightSource adapts the keyword table to match.WeightSource.
type WeightSource struct {
	DB *sql.DB
}

func (s WeightSource) WeightsForUser(ctx context.Context, userID int64) (map[string]int, error) {
	return UserKeywordWeights(ctx, s.DB, userID)
}
