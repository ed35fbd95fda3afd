package sqlstore

import (
	"context"
	"strings"

	"torrents/internal/models"
	"torrents/internal/store"
)

const userColumns = `id, username, email, password, role, registration_date, is_banned`

// userRow carries the folded username used by SearchUsers.
type userRow struct {
	models.User
	UsernameFold string `db:"username_fold"`
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	row := userRow{User: *u, UsernameFold: store.Fold(u.Username)}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO users(`+userColumns+`, username_fold)
		VALUES(:id, :username, :email, :password, :role, :registration_date, :is_banned, :username_fold)`, row)
	return translate("create user", err)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, translate("get user", err)
	}
	return &u, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users
		WHERE username = ? OR email = ?
		ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END
		LIMIT 1`), login, login, login)
	if err != nil {
		return nil, translate("get user by login", err)
	}
	return &u, nil
}

func (s *Store) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`), username, email)
	if err != nil {
		return false, translate("check user exists", err)
	}
	return n > 0, nil
}

func (s *Store) SearchUsers(ctx context.Context, fragment string, limit int) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, s.db.Rebind(`SELECT `+userColumns+` FROM users
		WHERE username_fold LIKE ? ESCAPE '\'
		ORDER BY username
		LIMIT ?`), likePattern(fragment), limit)
	if err != nil {
		return nil, translate("search users", err)
	}
	return users, nil
}

func (s *Store) BanUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET is_banned = ? WHERE id = ?`), true, id)
	return affectedOrNotFound("ban user", res, err)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, translate("count users", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring pattern matched against a *_fold column.
func likePattern(fragment string) string {
	return "%" + likeEscaper.Replace(store.Fold(fragment)) + "%"
}
