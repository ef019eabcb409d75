package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobfunnel-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// GetOrCreateUser resolves a Telegram account to our user row,
// creating it on first contact and refreshing a changed username.
func GetOrCreateUser(ctx context.Context, db *sql.DB, telegramID int64, username string) (domain.User, error) {
	u, err := getUserByTelegramID(ctx, db, telegramID)
	if err == nil {
		if username != "" && username != u.Username {
			_, _ = db.ExecContext(ctx,
				`UPDATE users SET username = ? WHERE id = ?;`, username, u.ID)
			u.Username = username
		}
		return u, nil
	}
	if err != ErrNotFound {
		return domain.User{}, err
	}

	res, err := db.ExecContext(ctx, `
INSERT INTO users(telegram_id, username, last_reset_date)
VALUES(?,?,?);`,
		telegramID, username, time.Now().UTC().Format(dateLayout),
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user telegram_id=%d: %w", telegramID, err)
	}

	id, _ := res.LastInsertId()
	return domain.User{
		ID:            id,
		TelegramID:    telegramID,
		Username:      username,
		LastResetDate: today(),
	}, nil
}

func getUserByTelegramID(ctx context.Context, db *sql.DB, telegramID int64) (domain.User, error) {
	var u domain.User
	var lastReset string

	err := db.QueryRowContext(ctx, `
SELECT id, telegram_id, username, refresh_count, vacancies_count, last_reset_date
FROM users
WHERE telegram_id = ?;`, telegramID).Scan(
		&u.ID, &u.TelegramID, &u.Username,
		&u.RefreshCount, &u.VacanciesCount, &lastReset,
	)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}

	u.LastResetDate, _ = time.Parse(dateLayout, lastReset)
	return u, nil
}

// RefreshBudgetLeft reports whether the user may run another refresh
// today. It reads the already-loaded row and consumes nothing; callers
// pair it with BumpRefreshCount once the refresh actually lands, so a
// failed run never costs budget.
func RefreshBudgetLeft(user domain.User, limit int) bool {
	if user.LastResetDate.Format(dateLayout) != time.Now().UTC().Format(dateLayout) {
		return true
	}
	return user.RefreshCount < limit
}

// BumpRefreshCount enforces the daily /refresh limit. It rolls the
// counter over on the first call of a new day and reports whether the
// user is still under the limit (the call that hits the limit counts).
func BumpRefreshCount(ctx context.Context, db *sql.DB, user domain.User, limit int) (bool, error) {
	count, err := bumpCounter(ctx, db, user, "refresh_count", user.RefreshCount)
	if err != nil {
		return false, err
	}
	return count <= limit, nil
}

// BumpVacanciesCount does the same for /next deliveries.
func BumpVacanciesCount(ctx context.Context, db *sql.DB, user domain.User, limit int) (bool, error) {
	count, err := bumpCounter(ctx, db, user, "vacancies_count", user.VacanciesCount)
	if err != nil {
		return false, err
	}
	return count <= limit, nil
}

func bumpCounter(ctx context.Context, db *sql.DB, user domain.User, column string, current int) (int, error) {
	if user.LastResetDate.Format(dateLayout) != time.Now().UTC().Format(dateLayout) {
		if err := resetUserCounters(ctx, db, user.ID); err != nil {
			return 0, err
		}
		current = 0
	}

	next := current + 1
	// column comes from the two callers above, never from input.
	_, err := db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ? WHERE id = ?;`, column),
		next, user.ID,
	)
	return next, err
}

func resetUserCounters(ctx context.Context, db *sql.DB, userID int64) error {
	_, err := db.ExecContext(ctx, `
UPDATE users
SET refresh_count = 0, vacancies_count = 0, last_reset_date = ?
WHERE id = ?;`,
		time.Now().UTC().Format(dateLayout), userID,
	)
	return err
}

// ResetAllDailyCounters is the midnight cron sweep.
func ResetAllDailyCounters(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `
UPDATE users
SET refresh_count = 0, vacancies_count = 0, last_reset_date = ?;`,
		time.Now().UTC().Format(dateLayout),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func today() time.Time {
	t, _ := time.Parse(dateLayout, time.Now().UTC().Format(dateLayout))
	return t
}
