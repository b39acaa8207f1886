// Command sessionview is a CLI tool for viewing saved chat sessions.
//
// Usage:
//
//	sessionview list --db path/to/sessions.db
//	sessionview list --dir path/to/sessions
//	sessionview show --db path/to/sessions.db --session SESSION_ID [--format json|jsonl]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fastnlabs/fastn-agent/persistence"
	"github.com/fastnlabs/fastn-agent/persistence/filestore"
	"github.com/fastnlabs/fastn-agent/persistence/sqlitestore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "list":
		if err := runList(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "show":
		if err := runShow(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `sessionview - view saved chat sessions

Usage:
  sessionview list (--db <path> | --dir <path>)
      List all session IDs in a SQLite database or session directory

  sessionview show (--db <path> | --dir <path>) --session <id> [--format json|jsonl]
      Show the transcript of a session (default format: json)

Formats:
  json   - Output as a JSON array (default)
  jsonl  - Output as JSON Lines (one message per line)

Examples:
  sessionview list --db ./sessions.db
  sessionview list --dir ./sessions
  sessionview show --db ./sessions.db --session abc123 --format jsonl | jq .
`)
}

// openStore opens whichever backend the flags selected, exactly one of
// --db and --dir must be set.
func openStore(dbPath, dirPath string) (persistence.Store, error) {
	switch {
	case dbPath != "" && dirPath != "":
		return nil, fmt.Errorf("--db and --dir are mutually exclusive")
	case dbPath != "":
		store, err := sqlitestore.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return store, nil
	case dirPath != "":
		store, err := filestore.New(dirPath)
		if err != nil {
			return nil, fmt.Errorf("open session directory: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("one of --db or --dir is required")
	}
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to SQLite database")
	dirPath := fs.String("dir", "", "path to session directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*dbPath, *dirPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	for _, s := range sessions {
		fmt.Println(s)
	}

	return nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to SQLite database")
	dirPath := fs.String("dir", "", "path to session directory")
	sessionID := fs.String("session", "", "session ID to display")
	format := fs.String("format", "json", "output format: json or jsonl")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *sessionID == "" {
		return fmt.Errorf("--session is required")
	}
	if *format != "json" && *format != "jsonl" {
		return fmt.Errorf("--format must be 'json' or 'jsonl'")
	}

	store, err := openStore(*dbPath, *dirPath)
	if err != nil {
		return err
	}
	defer store.Close()

	transcript, err := store.Load(*sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if len(transcript) == 0 {
		fmt.Fprintf(os.Stderr, "no messages found for session: %s\n", *sessionID)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch *format {
	case "json":
		if err := enc.Encode(transcript); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case "jsonl":
		enc.SetIndent("", "") // No indentation for JSONL
		for _, msg := range transcript {
			if err := enc.Encode(msg); err != nil {
				return fmt.Errorf("encode jsonl: %w", err)
			}
		}
	}

	return nil
}
