package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"forumhub/app/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

type userRow struct {
	ID                   string    `db:"id"`
	Email                string    `db:"email"`
	DisplayName          string    `db:"display_name"`
	AvatarURL            string    `db:"avatar_url"`
	Bio                  string    `db:"bio"`
	PasswordHash         string    `db:"password_hash"`
	NotificationsEnabled bool      `db:"notifications_enabled"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r *userRow) model() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		AvatarURL:    r.AvatarURL,
		Bio:          r.Bio,
		PasswordHash: r.PasswordHash,
		Settings:     models.Settings{NotificationsEnabled: r.NotificationsEnabled},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type postRow struct {
	ID         int       `db:"id"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	AuthorID   string    `db:"author_id"`
	AuthorName string    `db:"author_name"`
	LikeCount  int       `db:"like_count"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *postRow) model() *models.Post {
	return &models.Post{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		LikeCount:  r.LikeCount,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type replyRow struct {
	ID         int       `db:"id"`
	PostID     int       `db:"post_id"`
	ParentID   int       `db:"parent_id"`
	Content    string    `db:"content"`
	AuthorID   string    `db:"author_id"`
	AuthorName string    `db:"author_name"`
	LikeCount  int       `db:"like_count"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *replyRow) model() *models.Reply {
	return &models.Reply{
		ID:         r.ID,
		PostID:     r.PostID,
		ParentID:   r.ParentID,
		Content:    r.Content,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		LikeCount:  r.LikeCount,
		CreatedAt:  r.CreatedAt,
	}
}

func notFound(err error) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike quotes the wildcard characters of an ILIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// PgUserRepository implements UserRepository on Postgres
type PgUserRepository struct {
	db *sqlx.DB
}

func (r *PgUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := r.db.Exec(`INSERT INTO users (id, email, display_name, avatar_url, bio, password_hash, notifications_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, models.NormalizeEmail(user.Email), user.DisplayName, user.AvatarURL, user.Bio,
		user.PasswordHash, user.Settings.NotificationsEnabled, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return errors.Wrap(err, "error creating user")
}

func (r *PgUserRepository) GetByID(id string) (*models.User, error) {
	var row userRow
	if err := r.db.Get(&row, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (r *PgUserRepository) GetByEmail(email string) (*models.User, error) {
	var row userRow
	if err := r.db.Get(&row, "SELECT * FROM users WHERE email = $1", models.NormalizeEmail(email)); err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (r *PgUserRepository) Update(user *models.User) error {
	res, err := r.db.Exec(`UPDATE users SET display_name = $2, avatar_url = $3, bio = $4, password_hash = $5,
		notifications_enabled = $6, updated_at = $7 WHERE id = $1`,
		user.ID, user.DisplayName, user.AvatarURL, user.Bio, user.PasswordHash,
		user.Settings.NotificationsEnabled, user.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "error updating user")
	}
	return requireAffected(res)
}

func (r *PgUserRepository) List(limit, offset int) ([]*models.User, error) {
	var rows []userRow
	err := r.db.Select(&rows, "SELECT * FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2", limitArg(limit), offset)
	if err != nil {
		return nil, errors.Wrap(err, "error listing users")
	}
	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].model())
	}
	return users, nil
}

// PgPostRepository implements PostRepository on Postgres
type PgPostRepository struct {
	db *sqlx.DB
}

func (r *PgPostRepository) Create(post *models.Post) error {
	err := r.db.QueryRow(`INSERT INTO posts (title, content, author_id, author_name, like_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6) RETURNING id`,
		post.Title, post.Content, post.AuthorID, post.AuthorName, post.CreatedAt, post.UpdatedAt).Scan(&post.ID)
	return errors.Wrap(err, "error creating post")
}

func (r *PgPostRepository) GetByID(id int) (*models.Post, error) {
	var row postRow
	if err := r.db.Get(&row, "SELECT * FROM posts WHERE id = $1", id); err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (r *PgPostRepository) List(limit, offset int) ([]*models.Post, error) {
	return r.selectPosts("SELECT * FROM posts ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2", limitArg(limit), offset)
}

func (r *PgPostRepository) ListByAuthor(authorID string, limit, offset int) ([]*models.Post, error) {
	return r.selectPosts("SELECT * FROM posts WHERE author_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3",
		authorID, limitArg(limit), offset)
}

func (r *PgPostRepository) Search(query string, limit, offset int) ([]*models.Post, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.selectPosts(`SELECT * FROM posts WHERE title ILIKE $1 OR content ILIKE $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, pattern, limitArg(limit), offset)
}

func (r *PgPostRepository) selectPosts(query string, args ...interface{}) ([]*models.Post, error) {
	var rows []postRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "error listing posts")
	}
	posts := make([]*models.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].model())
	}
	return posts, nil
}

func (r *PgPostRepository) Update(post *models.Post) error {
	var likes int
	err := r.db.QueryRow(`UPDATE posts SET title = $2, content = $3, author_name = $4, updated_at = $5
		WHERE id = $1 RETURNING like_count`,
		post.ID, post.Title, post.Content, post.AuthorName, post.UpdatedAt).Scan(&likes)
	if err != nil {
		return notFound(err)
	}
	post.LikeCount = likes
	return nil
}

func (r *PgPostRepository) Delete(id int) error {
	res, err := r.db.Exec("DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "error deleting post")
	}
	return requireAffected(res)
}

// PgReplyRepository implements ReplyRepository on Postgres
type PgReplyRepository struct {
	db *sqlx.DB
}

func (r *PgReplyRepository) Create(reply *models.Reply) error {
	err := r.db.QueryRow(`INSERT INTO replies (post_id, parent_id, content, author_id, author_name, like_count, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6) RETURNING id`,
		reply.PostID, reply.ParentID, reply.Content, reply.AuthorID, reply.AuthorName, reply.CreatedAt).Scan(&reply.ID)
	return errors.Wrap(err, "error creating reply")
}

func (r *PgReplyRepository) GetByID(postID, id int) (*models.Reply, error) {
	var row replyRow
	if err := r.db.Get(&row, "SELECT * FROM replies WHERE post_id = $1 AND id = $2", postID, id); err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (r *PgReplyRepository) ListByPost(postID int) ([]*models.Reply, error) {
	var rows []replyRow
	if err := r.db.Select(&rows, "SELECT * FROM replies WHERE post_id = $1 ORDER BY id", postID); err != nil {
		return nil, errors.Wrap(err, "error listing replies")
	}
	replies := make([]*models.Reply, 0, len(rows))
	for i := range rows {
		replies = append(replies, rows[i].model())
	}
	return replies, nil
}

func (r *PgReplyRepository) CountByPost(postID int) (int, error) {
	var n int
	err := r.db.Get(&n, "SELECT COUNT(*) FROM replies WHERE post_id = $1", postID)
	return n, errors.Wrap(err, "error counting replies")
}

func (r *PgReplyRepository) Delete(postID int, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := r.db.Exec("DELETE FROM replies WHERE post_id = $1 AND id = ANY($2)", postID, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "error deleting replies")
	}
	return requireAffected(res)
}

func (r *PgReplyRepository) DeleteByPost(postID int) error {
	_, err := r.db.Exec("DELETE FROM replies WHERE post_id = $1", postID)
	return errors.Wrap(err, "error deleting replies")
}

// PgLikeRepository implements LikeRepository on Postgres
type PgLikeRepository struct {
	db *sqlx.DB
}

func (r *PgLikeRepository) Like(kind models.TargetKind, postID, targetID int, userID string) (int, bool, error) {
	return r.toggle(kind, postID, targetID, userID, true)
}

func (r *PgLikeRepository) Unlike(kind models.TargetKind, postID, targetID int, userID string) (int, bool, error) {
	return r.toggle(kind, postID, targetID, userID, false)
}

func (r *PgLikeRepository) toggle(kind models.TargetKind, postID, targetID int, userID string, like bool) (count int, changed bool, err error) {
	table, where, args, err := pgLikeTarget(kind, postID, targetID)
	if err != nil {
		return 0, false, err
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return 0, false, errors.Wrap(err, "error starting transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// lock the target row so concurrent likes serialize on the counter
	if err = tx.Get(&count, "SELECT like_count FROM "+table+" WHERE "+where+" FOR UPDATE", args...); err != nil {
		return 0, false, notFound(err)
	}

	var res sql.Result
	var delta int
	if like {
		res, err = tx.Exec(`INSERT INTO likes (kind, target_id, post_id, user_id) VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`, kind, targetID, postID, userID)
		delta = 1
	} else {
		res, err = tx.Exec("DELETE FROM likes WHERE kind = $1 AND target_id = $2 AND user_id = $3", kind, targetID, userID)
		delta = -1
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "error writing like")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}

	if n > 0 {
		changed = true
		update := fmt.Sprintf("UPDATE %s SET like_count = GREATEST(like_count + $%d, 0) WHERE %s RETURNING like_count",
			table, len(args)+1, where)
		if err = tx.Get(&count, update, append(args, delta)...); err != nil {
			return 0, false, errors.Wrap(err, "error updating like count")
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, false, errors.Wrap(err, "error committing like")
	}
	return count, changed, nil
}

func (r *PgLikeRepository) HasLiked(kind models.TargetKind, targetID int, userID string) (bool, error) {
	var exists bool
	err := r.db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM likes WHERE kind = $1 AND target_id = $2 AND user_id = $3)",
		kind, targetID, userID)
	return exists, errors.Wrap(err, "error checking like")
}

func (r *PgLikeRepository) DeleteByTarget(kind models.TargetKind, targetIDs ...int) error {
	if len(targetIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec("DELETE FROM likes WHERE kind = $1 AND target_id = ANY($2)", kind, pq.Array(targetIDs))
	return errors.Wrap(err, "error deleting likes")
}

// pgLikeTarget returns the table and row predicate for a like target.
// A reply only matches within its own post.
func pgLikeTarget(kind models.TargetKind, postID, targetID int) (table, where string, args []interface{}, err error) {
	switch kind {
	case models.TargetPost:
		return "posts", "id = $1", []interface{}{targetID}, nil
	case models.TargetReply:
		return "replies", "id = $1 AND post_id = $2", []interface{}{targetID, postID}, nil
	}
	return "", "", nil, errors.Errorf("unknown like target %q", kind)
}

// PgSessionRepository implements SessionRepository on Postgres
type PgSessionRepository struct {
	db *sqlx.DB
}

func (r *PgSessionRepository) Revoke(tokenID string, until time.Time) error {
	_, err := r.db.Exec(`INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`, tokenID, until)
	if err != nil {
		return errors.Wrap(err, "error revoking token")
	}
	_, err = r.db.Exec("DELETE FROM revoked_tokens WHERE expires_at < NOW()")
	return errors.Wrap(err, "error pruning revoked tokens")
}

func (r *PgSessionRepository) IsRevoked(tokenID string) (bool, error) {
	var revoked bool
	err := r.db.Get(&revoked, "SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > NOW())", tokenID)
	return revoked, errors.Wrap(err, "error checking token")
}

// PgDeviceRepository implements DeviceRepository on Postgres
type PgDeviceRepository struct {
	db *sqlx.DB
}

type deviceRow struct {
	UserID    string    `db:"user_id"`
	Token     string    `db:"token"`
	Platform  string    `db:"platform"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *PgDeviceRepository) Register(device *models.Device) error {
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`INSERT INTO devices (user_id, token, platform, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform, created_at = EXCLUDED.created_at`,
		device.UserID, device.Token, device.Platform, device.CreatedAt)
	return errors.Wrap(err, "error registering device")
}

func (r *PgDeviceRepository) ListByUser(userID string) ([]*models.Device, error) {
	var rows []deviceRow
	if err := r.db.Select(&rows, "SELECT * FROM devices WHERE user_id = $1 ORDER BY created_at", userID); err != nil {
		return nil, errors.Wrap(err, "error listing devices")
	}
	devices := make([]*models.Device, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, &models.Device{
			UserID:    row.UserID,
			Token:     row.Token,
			Platform:  row.Platform,
			CreatedAt: row.CreatedAt,
		})
	}
	return devices, nil
}

func (r *PgDeviceRepository) Delete(userID, token string) error {
	res, err := r.db.Exec("DELETE FROM devices WHERE user_id = $1 AND token = $2", userID, token)
	if err != nil {
		return errors.Wrap(err, "error deleting device")
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
