package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mc855/authenticator/internal/auth"
)

const pgErrUniqueViolation = "23505"

var _ auth.Store = (*Store)(nil)

const userColumns = `id, guid, nome, username, hashed_password, email, email_verificado, created_at, updated_at`

// FindUsers returns the users matching the filter with role links loaded.
func (s *Store) FindUsers(ctx context.Context, filter auth.UserFilter) ([]auth.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}

	var (
		clauses []string
		args    []any
	)
	if filter.Username != "" {
		args = append(args, filter.Username)
		clauses = append(clauses, fmt.Sprintf("username = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		clauses = append(clauses, fmt.Sprintf("email = $%d", len(args)))
	}
	query := `select ` + userColumns + ` from tb_usuario`
	if len(clauses) > 0 {
		op := " and "
		if filter.MatchAny {
			op = " or "
		}
		query += ` where ` + strings.Join(clauses, op)
	}
	query += ` order by id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadRoleLinks(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// InsertUser persists a new user. A unique violation that slipped past the
// service's pre-check maps onto the same conflict errors the pre-check
// produces, keyed by the violated constraint.
func (s *Store) InsertUser(ctx context.Context, u auth.User) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		insert into tb_usuario (guid, nome, username, hashed_password, email, email_verificado)
		values ($1, $2, $3, $4, $5, false)
		returning `+userColumns+`
	`, u.GUID, u.Name, u.Username, u.PasswordHash, u.Email)

	stored, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return auth.User{}, auth.ErrEmailConflict.WithDetail(
					"a user with the e-mail (%s) already exists", u.Email,
				)
			}
			return auth.User{}, auth.ErrUsernameConflict.WithDetail(
				"a user with the username (%s) already exists", u.Username,
			)
		}
		return auth.User{}, err
	}
	return stored, nil
}

// MarkEmailVerified flips the verified flag and returns the updated record.
func (s *Store) MarkEmailVerified(ctx context.Context, userID int64) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		update tb_usuario
		set email_verificado = true, updated_at = now()
		where id = $1
		returning `+userColumns+`
	`, userID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return user, nil
}

// FindRoles returns roles by name; an empty name list returns all roles.
func (s *Store) FindRoles(ctx context.Context, names []string) ([]auth.Role, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	query := `select id, nome, descricao from tb_funcao`
	var args []any
	if len(names) > 0 {
		placeholders := make([]string, len(names))
		for i, name := range names {
			args = append(args, name)
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		query += ` where nome in (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` order by id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// FindPermissionsByRoleIDs joins the role-permission link table and returns
// the distinct permissions reachable from the given roles.
func (s *Store) FindPermissionsByRoleIDs(ctx context.Context, roleIDs []int64) ([]auth.Permission, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roleIDs))
	args := make([]any, len(roleIDs))
	for i, id := range roleIDs {
		args[i] = id
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	rows, err := s.db.QueryContext(ctx, `
		select distinct p.id, p.nome, p.descricao
		from tb_permissao p
		join tb_vinculo_permissao_funcao v on v.id_permissao = p.id
		where v.id_funcao in (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// loadRoleLinks attaches the linked roles to each user in one query.
func (s *Store) loadRoleLinks(ctx context.Context, users []auth.User) error {
	if len(users) == 0 {
		return nil
	}
	placeholders := make([]string, len(users))
	args := make([]any, len(users))
	index := make(map[int64]int, len(users))
	for i := range users {
		args[i] = users[i].ID
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		index[users[i].ID] = i
	}
	rows, err := s.db.QueryContext(ctx, `
		select v.id_usuario, f.id, f.nome, f.descricao
		from tb_vinculo_usuario_funcao v
		join tb_funcao f on f.id = v.id_funcao
		where v.id_usuario in (`+strings.Join(placeholders, ", ")+`)
		order by f.id
	`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID int64
			role   auth.Role
		)
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.Description); err != nil {
			return err
		}
		if i, ok := index[userID]; ok {
			users[i].Roles = append(users[i].Roles, role)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID,
		&user.GUID,
		&user.Name,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
