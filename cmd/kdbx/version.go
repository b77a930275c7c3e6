// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkdbx/kdbx"
)

var getVersionCmd = &cobra.Command{
	Use:   "get-version <database>",
	Short: "Print the container generation of a KDBX/KDB1 file",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		loadGlobalFlags()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		version, err := kdbx.GetVersion(f)
		if err != nil {
			return err
		}
		fmt.Println(versionName(version))
		return nil
	},
}

func versionName(v kdbx.DatabaseVersion) string {
	switch v {
	case kdbx.VersionKDB1:
		return "KDB1"
	case kdbx.VersionKDBX3:
		return "KDBX3"
	case kdbx.VersionKDBX4:
		return "KDBX4"
	default:
		return fmt.Sprintf("unknown(0x%x)", int(v))
	}
}

func init() {
	rootCmd.AddCommand(getVersionCmd)
}
