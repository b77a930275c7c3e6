// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkdbx/kdbx"
)

var revealSecrets bool

var dumpXMLCmd = &cobra.Command{
	Use:   "dump-xml <database>",
	Short: "Print a database's decrypted XML document, protected values still keystream-encoded",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		loadGlobalFlags()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dk, err := readDatabaseKey()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		xmlBytes, err := kdbx.GetXML(f, dk)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(xmlBytes)
		return err
	},
}

var dumpJSONCmd = &cobra.Command{
	Use:   "dump-json <database>",
	Short: "Print a database's fully-decoded object graph as JSON",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		loadGlobalFlags()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dk, err := readDatabaseKey()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		db, err := kdbx.Open(f, dk)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(databaseJSON(db))
	},
}

func init() {
	dumpJSONCmd.Flags().BoolVar(&revealSecrets, "reveal-secrets", false,
		"Include protected field values in the JSON output instead of redacting them")
	rootCmd.AddCommand(dumpXMLCmd, dumpJSONCmd)
}

// The jsonDB/jsonGroup/jsonEntry/jsonValue family below exists because
// kdbx.Value deliberately has no exported fields (so %v/%#v never leak a
// protected secret, see value.go); dump-json renders its own projection
// instead of relying on encoding/json's default struct walk.

type jsonDB struct {
	Version        string           `json:"version"`
	Root           *jsonGroup       `json:"root,omitempty"`
	DeletedObjects []jsonDeletedObj `json:"deletedObjects,omitempty"`
	AttachmentIDs  []int            `json:"attachmentIds,omitempty"`
}

type jsonGroup struct {
	UUID    string       `json:"uuid"`
	Name    string       `json:"name"`
	Notes   string       `json:"notes,omitempty"`
	Entries []jsonEntry  `json:"entries,omitempty"`
	Groups  []*jsonGroup `json:"groups,omitempty"`
}

type jsonEntry struct {
	UUID   string               `json:"uuid"`
	Title  string               `json:"title"`
	Fields map[string]jsonValue `json:"fields"`
}

type jsonValue struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

type jsonDeletedObj struct {
	UUID         string `json:"uuid"`
	DeletionTime string `json:"deletionTime"`
}

func databaseJSON(db *kdbx.Database) jsonDB {
	out := jsonDB{Version: versionName(db.Config.Version)}
	if db.Root != nil {
		out.Root = groupJSON(db.Root)
	}
	for _, d := range db.DeletedObjects {
		out.DeletedObjects = append(out.DeletedObjects, jsonDeletedObj{
			UUID:         fmt.Sprintf("%x", d.UUID),
			DeletionTime: d.DeletionTime.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	for _, a := range db.Attachments {
		out.AttachmentIDs = append(out.AttachmentIDs, a.ID())
	}
	return out
}

func groupJSON(g *kdbx.Group) *jsonGroup {
	out := &jsonGroup{
		UUID:  fmt.Sprintf("%x", g.UUID),
		Name:  g.Name,
		Notes: g.Notes,
	}
	for _, e := range g.Entries() {
		out.Entries = append(out.Entries, entryJSON(e))
	}
	for _, sub := range g.Groups() {
		out.Groups = append(out.Groups, groupJSON(sub))
	}
	return out
}

func entryJSON(e *kdbx.Entry) jsonEntry {
	out := jsonEntry{
		UUID:   fmt.Sprintf("%x", e.UUID),
		Title:  e.Title(),
		Fields: make(map[string]jsonValue, len(e.Fields)),
	}
	for name, v := range e.Fields {
		jv := jsonValue{Kind: v.Kind().String()}
		if v.Kind() != kdbx.KindProtected || revealSecrets {
			jv.Value = v.Reveal()
		} else {
			jv.Value = "<redacted>"
		}
		out.Fields[name] = jv
	}
	return out
}
