// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkdbx/kdbx"
)

var purgeOut string

var purgeHistoryCmd = &cobra.Command{
	Use:   "purge-history <database>",
	Short: "Drop every entry's History snapshots and write the result out",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		loadGlobalFlags()
		if purgeOut == "" {
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

		if db.Root != nil {
			db.Root.Walk(func(g *kdbx.Group) {
				for _, e := range g.Entries() {
					e.History = nil
				}
			})
		}

		out, err := os.Create(purgeOut)
		if err != nil {
			return err
		}
		defer out.Close()

		return db.Save(out, dk)
	},
}

func init() {
	purgeHistoryCmd.Flags().StringVarP(&purgeOut, "out", "o", "", "Path to write the purged database to")
	rootCmd.AddCommand(purgeHistoryCmd)
}
