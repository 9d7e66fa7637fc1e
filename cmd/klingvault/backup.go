package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-vault/internal/storage"
)

func (a *app) snapshotter() (storage.Snapshotter, error) {
	s, ok := a.db.(storage.Snapshotter)
	if !ok {
		return nil, errors.New("database does not support backups")
	}
	return s, nil
}

func newBackupCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of the wallet database",
		Long: `Writes every wallet, account and journal entry to a file. Seeds and
keys stay encrypted with their wallet passwords.`,
		RunE: func(*cobra.Command, []string) error {
			s, err := a.snapshotter()
			if err != nil {
				return err
			}
			f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
			if err != nil {
				return err
			}
			if err := s.Backup(f); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Backup written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Backup file to create")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Load a snapshot written by backup",
		Long:  "Loads a backup into the wallet database. Entries with the same key are replaced.",
		RunE: func(*cobra.Command, []string) error {
			s, err := a.snapshotter()
			if err != nil {
				return err
			}
			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := s.Restore(f); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Restored %s\n", in)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Backup file to load")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
