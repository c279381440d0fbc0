package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"forumhub/app/config"
	"forumhub/app/repositories"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDBCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the forum database",
	}

	var yes bool
	var backupDir string

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBadger(load)
			if err != nil {
				return err
			}
			return initDb(cmd.OutOrStdout(), cfg.DataDir)
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBadger(load)
			if err != nil {
				return err
			}
			return clean(cmd.OutOrStdout(), cmd.InOrStdin(), cfg.DataDir, yes)
		},
	}
	cleanCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBadger(load)
			if err != nil {
				return err
			}
			_, err = backup(cmd.OutOrStdout(), cfg.DataDir, backupDir)
			return err
		},
	}
	backupCmd.Flags().StringVar(&backupDir, "dir", "data/backups", "directory to write the backup to")

	restoreCmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the database from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBadger(load)
			if err != nil {
				return err
			}
			return restore(cmd.OutOrStdout(), cmd.InOrStdin(), cfg.DataDir, args[0], yes)
		},
	}
	restoreCmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace an existing database without asking")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StoragePostgres {
				return errors.Errorf("migrate needs the postgres storage driver, not %q", cfg.StorageDriver)
			}
			ps, err := repositories.OpenPostgres(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer ps.Store().Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		},
	}

	cmd.AddCommand(initCmd, cleanCmd, backupCmd, restoreCmd, migrateCmd)
	return cmd
}

func loadBadger(load configLoader) (*config.Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := requireBadger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// confirm asks question on out and reads the answer from in
func confirm(out io.Writer, in io.Reader, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}

// initDb initializes a new empty database.
func initDb(out io.Writer, dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		fmt.Fprintln(out, "Database already exists. Use 'db clean' first if you want to reinitialize.")
		return nil
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}
	bs, err := repositories.OpenBadger(dbPath)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	if err := bs.Close(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Database initialized successfully")
	return nil
}

// clean removes the database.
func clean(out io.Writer, in io.Reader, dbPath string, yes bool) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "Database is already clean (does not exist)")
		return nil
	}

	if !yes && !confirm(out, in, "Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(out, "Operation cancelled")
		return nil
	}

	if err := os.RemoveAll(dbPath); err != nil {
		return errors.Wrap(err, "failed to clean database")
	}
	fmt.Fprintln(out, "Database cleaned successfully")
	return nil
}

// backup writes a full backup of the database into backupDir and returns
// the file it created.
func backup(out io.Writer, dbPath, backupDir string) (string, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", errors.New("no database exists to backup")
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create backup directory")
	}

	bs, err := repositories.OpenBadger(dbPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open database")
	}
	defer bs.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to create backup file")
	}
	defer f.Close()

	if _, err := bs.DB().Backup(f, 0); err != nil {
		return "", errors.Wrap(err, "failed to backup database")
	}
	if err := f.Sync(); err != nil {
		return "", errors.Wrap(err, "failed to write backup file")
	}

	fmt.Fprintf(out, "Database backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// restore restores the database from a backup.
func restore(out io.Writer, in io.Reader, dbPath, backupFile string, yes bool) (err error) {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		return errors.Errorf("backup file does not exist: %s", backupFile)
	}
	if err != nil {
		return errors.Wrap(err, "failed to stat backup file")
	}
	if fi.Size() == 0 {
		return errors.Errorf("backup file is empty: %s", backupFile)
	}

	if _, err := os.Stat(dbPath); err == nil {
		if !yes && !confirm(out, in, "Existing database found. Do you want to replace it?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
		if err := os.RemoveAll(dbPath); err != nil {
			return errors.Wrap(err, "failed to remove existing database")
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}
	bs, err := repositories.OpenBadger(dbPath)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer bs.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		return errors.Wrap(err, "failed to open backup file")
	}
	defer f.Close()

	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic occurred during restore: %v", r)
			}
		}()
		return bs.DB().Load(f, 4)
	}()
	if err != nil {
		return errors.Wrap(err, "failed to restore database")
	}

	fmt.Fprintln(out, "Database restored successfully")
	return nil
}
