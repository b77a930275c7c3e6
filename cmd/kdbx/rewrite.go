// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkdbx/kdbx"
)

var (
	rewriteOut         string
	rewriteNewPassword bool
	rewriteNewKeyfile  string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <database>",
	Short: "Re-encode a database, optionally under a new password or keyfile",
	Long: `rewrite opens a database and writes it back out unchanged except
for fresh random seeds (spec §9: Save always re-randomizes MasterSeed,
EncryptionIV, and the KDF's own seed/salt, even when no other flag
changes anything). --new-password and --new-keyfile replace the key
elements used to encrypt the output instead of reusing the input key.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		loadGlobalFlags()
		if rewriteOut == "" {
			return fmt.Errorf("kdbx: --out is required")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dk, err := readDatabaseKey()
		if err != nil {
			return err
		}

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		db, err := kdbx.Open(in, dk)
		in.Close()
		if err != nil {
			return err
		}

		outKey := dk
		if rewriteNewPassword {
			password, err := promptPassword("New database password: ")
			if err != nil {
				return err
			}
			outKey = kdbx.NewDatabaseKey().WithPassword(password)
		}
		if rewriteNewKeyfile != "" {
			f, err := os.Open(rewriteNewKeyfile)
			if err != nil {
				return err
			}
			outKey, err = outKey.WithKeyfile(f)
			f.Close()
			if err != nil {
				return err
			}
		}

		out, err := os.Create(rewriteOut)
		if err != nil {
			return err
		}
		defer out.Close()

		return db.Save(out, outKey)
	},
}

func init() {
	rewriteCmd.Flags().StringVarP(&rewriteOut, "out", "o", "", "Path to write the rewritten database to")
	rewriteCmd.Flags().BoolVar(&rewriteNewPassword, "new-password", false, "Prompt for a new password to encrypt the output with")
	rewriteCmd.Flags().StringVar(&rewriteNewKeyfile, "new-keyfile", "", "Replace the keyfile element for the output")
	rootCmd.AddCommand(rewriteCmd)
}
