// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"hermannm.dev/devlog"

	"github.com/openkdbx/kdbx"
)

var (
	debug      bool
	logLevel   slog.LevelVar
	keyfile    string
	noPassword bool
)

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "kdbx",
	Short: "Inspect and rewrite KeePass KDBX/KDB1 password databases",
	Long: `kdbx reads and writes KeePass password-database containers
(KDB1, KDBX3, KDBX4): dumping their decrypted contents, re-encoding them
under a new cipher/KDF/key, purging entry history, benchmarking a KDF's
cost parameters, and attaching a hardware challenge-response key.`,
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Print debug protocol-framing detail")
	rootCmd.PersistentFlags().StringVarP(&keyfile, "keyfile", "k", "", "Path to a KeePass keyfile")
	rootCmd.PersistentFlags().BoolVar(&noPassword, "no-password", false, "Do not prompt for a password; use only --keyfile")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

// loadGlobalFlags applies --debug after viper/cobra have parsed flags, the
// same PreRunE-time pattern as the teacher's rootCmdLoadConfig.
func loadGlobalFlags() {
	if viper.GetBool("debug") {
		logLevel.Set(slog.LevelDebug)
	}
}

// readDatabaseKey builds a DatabaseKey from the --keyfile/--no-password
// flags, prompting for a password on the controlling terminal unless
// --no-password was given. It returns an error if neither a password nor a
// keyfile ends up set, since an empty DatabaseKey can never open a file.
func readDatabaseKey() (kdbx.DatabaseKey, error) {
	dk := kdbx.NewDatabaseKey()

	if !noPassword {
		password, err := promptPassword("Database password: ")
		if err != nil {
			return kdbx.DatabaseKey{}, fmt.Errorf("kdbx: reading password: %w", err)
		}
		dk = dk.WithPassword(password)
	}

	if keyfile != "" {
		f, err := os.Open(keyfile)
		if err != nil {
			return kdbx.DatabaseKey{}, fmt.Errorf("kdbx: opening keyfile: %w", err)
		}
		defer f.Close()

		dk, err = dk.WithKeyfile(f)
		if err != nil {
			return kdbx.DatabaseKey{}, err
		}
	}

	if dk.IsEmpty() {
		return kdbx.DatabaseKey{}, fmt.Errorf("kdbx: no key material given (need a password or --keyfile)")
	}
	return dk, nil
}

// promptPassword reads a password without echoing it when stdin is a
// terminal, falling back to a plain line read otherwise (e.g. piped input
// in scripts and tests).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
