package service

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"forumhub/app/models"
	"forumhub/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfig writes a config file pointing at a fresh data directory
// and returns the config path and the database path
func setupTestConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "badger")
	cfg := "data_dir: " + dbPath + "\n" +
		"media_dir: " + filepath.Join(tmpDir, "media") + "\n" +
		"jwt_secret: commands-test-secret-value\n" + extra
	path := filepath.Join(tmpDir, "forum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path, dbPath
}

// run executes the command line with stdin set to input
func run(t *testing.T, configPath, input string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func seed(t *testing.T, dbPath string) {
	t.Helper()
	bs, err := repositories.OpenBadger(dbPath)
	require.NoError(t, err)
	defer bs.Close()
	store := bs.Store()

	user := &models.User{Email: "ada@example.com", DisplayName: "ada"}
	user.BeforeCreate()
	require.NoError(t, store.Users.Create(user))

	post := &models.Post{Title: "Engines", Content: "analytical", AuthorID: user.ID, AuthorName: "ada"}
	post.BeforeCreate()
	require.NoError(t, store.Posts.Create(post))
	reply := &models.Reply{PostID: post.ID, Content: "nice", AuthorID: user.ID, AuthorName: "ada"}
	reply.BeforeCreate()
	require.NoError(t, store.Replies.Create(reply))
}

func TestVersionCommand(t *testing.T) {
	configPath, _ := setupTestConfig(t, "")
	out, err := run(t, configPath, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "forum version "+Version+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	configPath, _ := setupTestConfig(t, "")
	_, err := run(t, configPath, "", "frobnicate")
	assert.Error(t, err)

	_, err = run(t, configPath, "", "db", "restore")
	assert.Error(t, err, "restore needs a backup file")
}

func TestDBInitAndClean(t *testing.T) {
	configPath, dbPath := setupTestConfig(t, "")

	out, err := run(t, configPath, "", "db", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialized successfully")
	assert.DirExists(t, dbPath)

	out, err = run(t, configPath, "", "db", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Database already exists")

	out, err = run(t, configPath, "n\n", "db", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Operation cancelled")
	assert.DirExists(t, dbPath)

	out, err = run(t, configPath, "y\n", "db", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Database cleaned successfully")
	assert.NoDirExists(t, dbPath)

	out, err = run(t, configPath, "", "db", "clean", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "already clean")
}

func TestDBBackupAndRestore(t *testing.T) {
	configPath, dbPath := setupTestConfig(t, "")
	seed(t, dbPath)
	backupDir := filepath.Join(t.TempDir(), "backups")

	out, err := run(t, configPath, "", "db", "backup", "--dir", backupDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Database backed up successfully")
	files, err := filepath.Glob(filepath.Join(backupDir, "backup_*.db"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = run(t, configPath, "", "db", "clean", "--yes")
	require.NoError(t, err)

	out, err = run(t, configPath, "", "db", "restore", files[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Database restored successfully")

	out, err = run(t, configPath, "", "posts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Engines")

	t.Run("existing database asks first", func(t *testing.T) {
		out, err := run(t, configPath, "\n", "db", "restore", files[0])
		require.NoError(t, err)
		assert.Contains(t, out, "Operation cancelled")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, configPath, "", "db", "restore", filepath.Join(backupDir, "nope.db"))
		assert.ErrorContains(t, err, "backup file does not exist")
	})

	t.Run("empty file", func(t *testing.T) {
		empty := filepath.Join(backupDir, "empty.db")
		require.NoError(t, os.WriteFile(empty, nil, 0644))
		_, err := run(t, configPath, "", "db", "restore", "--yes", empty)
		assert.ErrorContains(t, err, "backup file is empty")
	})

	t.Run("no database to back up", func(t *testing.T) {
		other, _ := setupTestConfig(t, "")
		_, err := run(t, other, "", "db", "backup", "--dir", backupDir)
		assert.ErrorContains(t, err, "no database exists")
	})
}

func TestDBMigrateNeedsPostgres(t *testing.T) {
	configPath, _ := setupTestConfig(t, "")
	_, err := run(t, configPath, "", "db", "migrate")
	assert.ErrorContains(t, err, "postgres")
}

func TestListCommands(t *testing.T) {
	configPath, dbPath := setupTestConfig(t, "")

	out, err := run(t, configPath, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No users yet")

	seed(t, dbPath)

	out, err = run(t, configPath, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "1 user(s)")

	out, err = run(t, configPath, "", "posts", "list", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Engines")
	assert.Contains(t, out, "1 post(s)")

	out, err = run(t, configPath, "", "posts", "list", "--author", "someone-else")
	require.NoError(t, err)
	assert.Contains(t, out, "No posts yet")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo w...", truncate("héllo wörld!", 10))
}
