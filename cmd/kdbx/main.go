// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Command kdbx inspects and rewrites KeePass KDBX/KDB1 password databases.
// All parsing lives in the github.com/openkdbx/kdbx library; this command
// is a thin cobra/viper shell over it, in the same shape as the teacher's
// cmd package (rootCmd + one file per subcommand, wired through
// PersistentFlags and viper binding).
package main

func main() {
	Execute()
}
