package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/storage"
)

type tx struct {
	tx *sql.Tx
}

var _ storage.Tx = (*tx)(nil)

const userColumns = `id, username, email, password_hash, role, paper_balance, created_at, last_login`

func (t *tx) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		user.PaperBalance.String(), user.CreatedAt.UnixNano(), nullableTime(user.LastLogin),
	)
	if err != nil {
		return translateConstraint(err, "insert user")
	}
	return nil
}

func (t *tx) UserByID(ctx context.Context, id string) (*domain.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, errors.Wrapf(err, "user %s", id)
	}
	return user, nil
}

func (t *tx) UserByLogin(ctx context.Context, login string) (*domain.User, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`, login, login)
	user, err := scanUser(row)
	if err != nil {
		return nil, errors.Wrapf(err, "user %q", login)
	}
	return user, nil
}

func (t *tx) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UnixNano(), userID)
	if err != nil {
		return errors.Wrap(err, "update last login")
	}
	return requireOneRow(res, userID)
}

func (t *tx) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var raw string
	err := t.tx.QueryRowContext(ctx, `SELECT paper_balance FROM users WHERE id = ?`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, errors.Wrapf(domain.ErrNotFound, "user %s", userID)
		}
		return decimal.Zero, errors.Wrap(err, "select balance")
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "decode balance of user %s", userID)
	}
	return balance, nil
}

func (t *tx) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE users SET paper_balance = ? WHERE id = ?`, balance.String(), userID)
	if err != nil {
		return errors.Wrap(err, "update balance")
	}
	return requireOneRow(res, userID)
}

func (t *tx) InsertTrade(ctx context.Context, trade *domain.Trade) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trades (id, user_id, pair, side, quantity, price, total, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.UserID, trade.Pair, string(trade.Side),
		trade.Quantity.String(), trade.Price.String(), trade.Total.String(),
		string(trade.Status), trade.Timestamp.UnixNano(),
	)
	if err != nil {
		return translateConstraint(err, "insert trade")
	}
	return nil
}

func (t *tx) LatestTradeTime(ctx context.Context, userID string) (time.Time, bool, error) {
	var ts sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM trades WHERE user_id = ?`, userID).Scan(&ts)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "select latest trade time")
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, ts.Int64).UTC(), true, nil
}

func (t *tx) TradesByUser(ctx context.Context, userID string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		return nil, errors.Wrapf(domain.ErrValidation, "trade limit must be positive, got %d", limit)
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, user_id, pair, side, quantity, price, total, status, timestamp
		FROM trades
		WHERE user_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select trades")
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0, limit)
	for rows.Next() {
		var (
			trade                  domain.Trade
			side, status           string
			quantity, price, total string
			ts                     int64
		)
		if err := rows.Scan(&trade.ID, &trade.UserID, &trade.Pair, &side, &quantity, &price, &total, &status, &ts); err != nil {
			return nil, errors.Wrap(err, "scan trade")
		}
		trade.Side = domain.Side(side)
		trade.Status = domain.TradeStatus(status)
		trade.Timestamp = time.Unix(0, ts).UTC()
		if trade.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, errors.Wrapf(err, "decode quantity of trade %s", trade.ID)
		}
		if trade.Price, err = decimal.NewFromString(price); err != nil {
			return nil, errors.Wrapf(err, "decode price of trade %s", trade.ID)
		}
		if trade.Total, err = decimal.NewFromString(total); err != nil {
			return nil, errors.Wrapf(err, "decode total of trade %s", trade.ID)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate trades")
	}
	return trades, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user      domain.User
		role      string
		balance   string
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role, &balance, &createdAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}

	user.Role = domain.Role(role)
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastLogin.Valid {
		at := time.Unix(0, lastLogin.Int64).UTC()
		user.LastLogin = &at
	}
	if user.PaperBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, errors.Wrap(err, "decode balance")
	}
	return &user, nil
}

func requireOneRow(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "user %s", userID)
	}
	return nil
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

// translateConstraint maps a UNIQUE violation to domain.ErrConflict naming the column.
func translateConstraint(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "users.username"):
			return errors.Wrap(domain.ErrConflict, "username already exists")
		case strings.Contains(msg, "users.email"):
			return errors.Wrap(domain.ErrConflict, "email already exists")
		default:
			return errors.Wrap(domain.ErrConflict, op)
		}
	}
	return errors.Wrap(err, op)
}
