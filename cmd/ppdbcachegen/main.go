// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/saferwall/ppdb"
	"github.com/saferwall/ppdb/ppdbcache"
	"github.com/spf13/cobra"
)

func buildOne(pdbPath, outPath string) error {
	p, err := ppdb.New(pdbPath, &ppdb.Options{})
	if err != nil {
		return fmt.Errorf("opening %s: %w", pdbPath, err)
	}
	defer p.Close()

	if err := p.Parse(); err != nil {
		return fmt.Errorf("parsing %s: %w", pdbPath, err)
	}

	buf, err := ppdbcache.Build(p)
	if err != nil {
		return fmt.Errorf("building cache: %w", err)
	}

	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(buf))
	return nil
}

func runBuild(cmd *cobra.Command, args []string) {
	pdbPath, outPath := args[0], args[1]
	if err := buildOne(pdbPath, outPath); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runLookup(cmd *cobra.Command, args []string) {
	cachePath := args[0]
	token, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		fmt.Printf("bad method token %q: %s\n", args[1], err)
		os.Exit(1)
	}
	il, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		fmt.Printf("bad IL offset %q: %s\n", args[2], err)
		os.Exit(1)
	}

	c, err := ppdbcache.Open(cachePath)
	if err != nil {
		fmt.Printf("opening %s: %s\n", cachePath, err)
		os.Exit(1)
	}
	defer c.Close()

	loc, ok := c.Lookup(uint32(token), uint32(il))
	if !ok {
		fmt.Println("no mapping found")
		return
	}
	if loc.Hidden {
		fmt.Println("hidden")
		return
	}
	fmt.Printf("%s:%d:%d\n", loc.File, loc.Line, loc.Column)
}

func runDump(cmd *cobra.Command, args []string) {
	p, err := ppdb.New(args[0], &ppdb.Options{})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer p.Close()

	if err := p.Parse(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	docs, err := p.Documents()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for i, d := range docs {
		fmt.Printf("document[%d]: %s\n", i+1, d.Path)
	}
	fmt.Printf("%d method(s) with debug information\n", p.MethodCount())
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "ppdbcachegen",
		Short: "Builds and queries PPDBCache indexes from Portable PDB files",
		Long:  "Converts a Portable PDB into a flat PPDBCache index, and resolves (method token, IL offset) lookups against it",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 1.0.0")
		},
	}

	var buildCmd = &cobra.Command{
		Use:   "build <pdb> <out.ppdbcache>",
		Short: "Parses a .pdb file and writes its PPDBCache",
		Args:  cobra.ExactArgs(2),
		Run:   runBuild,
	}

	var lookupCmd = &cobra.Command{
		Use:   "lookup <cache> <method-token> <il-offset>",
		Short: "Resolves a (method token, IL offset) pair against a built cache",
		Args:  cobra.ExactArgs(3),
		Run:   runLookup,
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump <pdb>",
		Short: "Parses a .pdb file and prints its documents and method count",
		Args:  cobra.ExactArgs(1),
		Run:   runDump,
	}

	rootCmd.AddCommand(versionCmd, buildCmd, lookupCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
