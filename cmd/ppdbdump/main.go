// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saferwall/ppdb"
	"github.com/saferwall/ppdb/log"
)

type config struct {
	wantDocuments bool
	wantMethods   bool
	wantSource    bool
	fast          bool
}

func main() {
	dumpCmd := flag.NewFlagSet("dump", flag.ExitOnError)
	dumpDocuments := dumpCmd.Bool("documents", false, "Dump the Document table")
	dumpMethods := dumpCmd.Bool("methods", false, "Dump sequence points per method")
	dumpSource := dumpCmd.Bool("source", false, "Dump embedded source, if present")
	dumpFast := dumpCmd.Bool("fast", false, "Skip the #~ table stream entirely")

	if len(os.Args) < 2 {
		showHelp()
	}

	switch os.Args[1] {
	case "dump":
		dumpCmd.Parse(os.Args[3:])
		cfg := config{
			wantDocuments: *dumpDocuments,
			wantMethods:   *dumpMethods,
			wantSource:    *dumpSource,
			fast:          *dumpFast,
		}
		parse(os.Args[2], cfg)
	case "version":
		fmt.Println("You are using version 1.0.0")
	default:
		showHelp()
	}
}

func showHelp() {
	fmt.Print(`
ppdbdump — walks a file or directory and decodes every file it finds as a
Portable PDB, reporting its documents, methods, and sequence points.
`)
	fmt.Println("\nUsage: ppdbdump dump <path> [-documents] [-methods] [-source] [-fast]")
	os.Exit(1)
}

func isDirectory(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

func parse(path string, cfg config) {
	if !isDirectory(path) {
		dumpOne(path, cfg)
		return
	}

	var files []string
	filepath.Walk(path, func(p string, f os.FileInfo, err error) error {
		if err == nil && !f.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	for _, f := range files {
		dumpOne(f, cfg)
	}
}

func dumpOne(filename string, cfg config) {
	logger := log.NewStdLogger(os.Stdout)
	logger = log.NewFilter(logger, log.FilterLevel(log.LevelInfo))
	lh := log.NewHelper(logger)

	lh.Infof("parsing %s", filename)

	p, err := ppdb.New(filename, &ppdb.Options{
		Logger: logger,
		Fast:   cfg.fast,
	})
	if err != nil {
		lh.Infof("could not open %s: %s", filename, err)
		return
	}
	defer p.Close()

	if err := p.Parse(); err != nil {
		lh.Infof("could not parse %s: %s", filename, err)
		return
	}

	if cfg.wantDocuments {
		dumpDocuments(p, lh)
	}
	if cfg.wantMethods {
		dumpMethods(p, lh, cfg.wantSource)
	}
}

func dumpDocuments(p *ppdb.PPDBFile, lh *log.Helper) {
	docs, err := p.Documents()
	if err != nil {
		lh.Infof("documents: %s", err)
		return
	}
	for i, d := range docs {
		fmt.Printf("document[%d]: %s\n", i+1, d.Path)
	}
}

func dumpMethods(p *ppdb.PPDBFile, lh *log.Helper, wantSource bool) {
	seen := make(map[uint32]bool)
	for row := uint32(1); row <= p.MethodCount(); row++ {
		md, err := p.MethodDebugInfo(row)
		if err != nil {
			lh.Infof("method %d: %s", row, err)
			continue
		}
		points, err := md.SequencePoints()
		if err != nil {
			lh.Infof("method %d: sequence points: %s", row, err)
			continue
		}
		fmt.Printf("method[%d]: %d sequence point(s)\n", row, len(points))
		for _, sp := range points {
			if sp.IsHidden {
				fmt.Printf("  il=%#x hidden\n", sp.ILOffset)
				continue
			}
			fmt.Printf("  il=%#x %d:%d-%d:%d doc=%d\n",
				sp.ILOffset, sp.StartLine, sp.StartColumn, sp.EndLine, sp.EndColumn, sp.Document)

			if wantSource && !seen[sp.Document] {
				seen[sp.Document] = true
				src, ok, err := p.EmbeddedSource(sp.Document)
				if err != nil {
					lh.Infof("document %d: embedded source: %s", sp.Document, err)
				} else if ok {
					fmt.Printf("  [embedded source, %d bytes]\n", len(src))
				}
			}
		}
	}
}
