package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meshpoint/accounts/internal/store/core"
)

const userColumns = `id, username, password_hash, first_name, last_name, email, gender,
	email_confirmed, confirmation_token, confirmation_expires, lazy_username,
	profile_image, connection_last_unsubscribe, is_online, created_at, last_login`

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func scanUser(row pgx.Row) (*core.User, error) {
	var (
		u                   core.User
		confirmationExpires *time.Time
		lastUnsubscribe     *time.Time
		lastLogin           *time.Time
		profileImage        string
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Email, &u.Gender,
		&u.EmailConfirmed, &u.ConfirmationToken, &confirmationExpires, &u.LazyUsername,
		&profileImage, &lastUnsubscribe, &u.IsOnline, &u.CreatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	u.ProfileImage = core.ImageSource(profileImage)
	u.ConfirmationExpires = timeOrZero(confirmationExpires)
	u.ConnectionLastUnsubscribe = timeOrZero(lastUnsubscribe)
	u.LastLogin = timeOrZero(lastLogin)
	return &u, nil
}

// loadChildren carga identities y connections del usuario.
func (s *Store) loadChildren(ctx context.Context, u *core.User) error {
	rows, err := s.pool.Query(ctx, `
SELECT provider, provider_user_id, access_token, token_secret, link, picture, display_name, linked_at
FROM identity WHERE user_id = $1`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id core.Identity
		if err := rows.Scan(&id.Provider, &id.ProviderID, &id.AccessToken, &id.TokenSecret,
			&id.Link, &id.Picture, &id.DisplayName, &id.LinkedAt); err != nil {
			return err
		}
		u.SetIdentity(&id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := s.pool.Query(ctx, `
SELECT cache_validator, modified_validator, channel_id
FROM user_connection WHERE user_id = $1 ORDER BY id`, u.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		var c core.Connection
		if err := crows.Scan(&c.CacheValidator, &c.ModifiedValidator, &c.ChannelID); err != nil {
			return err
		}
		u.Connections = append(u.Connections, c)
	}
	return crows.Err()
}

func insertIdentities(ctx context.Context, tx pgx.Tx, u *core.User) error {
	for _, id := range u.Identities {
		linkedAt := id.LinkedAt
		if linkedAt.IsZero() {
			linkedAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx, `
INSERT INTO identity (user_id, provider, provider_user_id, access_token, token_secret, link, picture, display_name, linked_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, id.Provider, id.ProviderID, id.AccessToken, id.TokenSecret,
			id.Link, id.Picture, id.DisplayName, linkedAt)
		if err != nil {
			return classify(err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	if u.Username == "" {
		return core.ErrInvalid
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
INSERT INTO app_user (username, password_hash, first_name, last_name, email, gender,
	email_confirmed, confirmation_token, confirmation_expires, lazy_username,
	profile_image, connection_last_unsubscribe, is_online, last_login)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, u.Gender,
		u.EmailConfirmed, u.ConfirmationToken, nullTime(u.ConfirmationExpires), u.LazyUsername,
		string(u.ProfileImage), nullTime(u.ConnectionLastUnsubscribe), u.IsOnline, nullTime(u.LastLogin),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return classify(err)
	}
	if err := insertIdentities(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateUser persiste el documento completo: fila de app_user más el
// reemplazo de sus identities. Las connections se mutan con las
// operaciones dedicadas, no acá.
func (s *Store) UpdateUser(ctx context.Context, u *core.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
UPDATE app_user SET username=$2, password_hash=$3, first_name=$4, last_name=$5,
	email=$6, gender=$7, email_confirmed=$8, confirmation_token=$9,
	confirmation_expires=$10, lazy_username=$11, profile_image=$12,
	connection_last_unsubscribe=$13, is_online=$14, last_login=$15
WHERE id=$1`,
		u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName,
		u.Email, u.Gender, u.EmailConfirmed, u.ConfirmationToken,
		nullTime(u.ConfirmationExpires), u.LazyUsername, string(u.ProfileImage),
		nullTime(u.ConnectionLastUnsubscribe), u.IsOnline, nullTime(u.LastLogin))
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM identity WHERE user_id=$1`, u.ID); err != nil {
		return err
	}
	if err := insertIdentities(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM app_user WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE LOWER(username)=LOWER($1)`, username))
	if err != nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByIdentity(ctx context.Context, provider, providerID string) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
SELECT `+userColumnsQualified+`
FROM app_user u
JOIN identity i ON i.user_id = u.id
WHERE i.provider=$1 AND i.provider_user_id=$2`, provider, providerID))
	if err != nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

const userColumnsQualified = `u.id, u.username, u.password_hash, u.first_name, u.last_name, u.email, u.gender,
	u.email_confirmed, u.confirmation_token, u.confirmation_expires, u.lazy_username,
	u.profile_image, u.connection_last_unsubscribe, u.is_online, u.created_at, u.last_login`

func (s *Store) AddConnection(ctx context.Context, userID string, c core.Connection) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO user_connection (user_id, cache_validator, modified_validator, channel_id)
VALUES ($1,$2,$3,$4)`, userID, c.CacheValidator, c.ModifiedValidator, c.ChannelID)
	return err
}

func (s *Store) RemoveConnection(ctx context.Context, userID string, c core.Connection) error {
	_, err := s.pool.Exec(ctx, `
DELETE FROM user_connection
WHERE id IN (
	SELECT id FROM user_connection
	WHERE user_id=$1 AND cache_validator=$2 AND modified_validator=$3 AND channel_id=$4
	LIMIT 1
)`, userID, c.CacheValidator, c.ModifiedValidator, c.ChannelID)
	return err
}

func (s *Store) ClearConnections(ctx context.Context, userID string, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_connection WHERE user_id=$1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE app_user SET connection_last_unsubscribe=$2 WHERE id=$1`, userID, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) SetOnline(ctx context.Context, userID string, online bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE app_user SET is_online=$2 WHERE id=$1`, userID, online)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
