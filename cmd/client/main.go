package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tidesql/tidesql/internal/sql/executor"
	"github.com/tidesql/tidesql/sqlclient"
)

// ---- History (own file) ----

type History struct {
	path  string
	lines []string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *History) Append(stmt string) error {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" || h.path == "" {
		return nil
	}

	// store single-line; collapse whitespace/newlines
	stmt = compactOneLine(stmt)

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, stmt); err != nil {
		return err
	}
	h.lines = append(h.lines, stmt)
	return nil
}

func (h *History) Print(last int) {
	if last <= 0 || last > len(h.lines) {
		last = len(h.lines)
	}
	start := len(h.lines) - last
	if start < 0 {
		start = 0
	}
	for i := start; i < len(h.lines); i++ {
		fmt.Printf("%5d  %s\n", i+1, h.lines[i])
	}
}

func compactOneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// ---- REPL helpers ----

// statementComplete reports whether buf carries a ';' outside single
// quotes. Embedded quotes are doubled ('') so a plain toggle works.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}

func isMetaCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "\\") ||
		line == "quit" || line == "exit"
}

func printResult(res *executor.Result) {
	if res.Message != "" {
		fmt.Println(res.Message)
		return
	}
	if len(res.Columns) == 0 {
		fmt.Printf("OK (%d affected)\n", res.AffectedRows)
		return
	}

	cols := res.Columns
	rows := res.Rows

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i := range cols {
			s := "NULL"
			if i < len(row) {
				s = row[i].String()
			}
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Print(padRight(values[i], widths[i]))
		}
		fmt.Println()
	}

	printRow(cols)

	for i := range cols {
		if i > 0 {
			fmt.Print("-+-")
		}
		fmt.Print(strings.Repeat("-", widths[i]))
	}
	fmt.Println()

	for _, row := range rows {
		out := make([]string, len(cols))
		for i := range cols {
			out[i] = "NULL"
			if i < len(row) {
				out[i] = row[i].String()
			}
		}
		printRow(out)
	}

	fmt.Printf("(%d rows)\n", len(rows))
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".tidesql_history"
	}
	return filepath.Join(home, ".tidesql_history")
}

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:5432", "server address")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial timeout")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
		oneShotSQL = flag.String("c", "", "execute one SQL and exit")
	)
	flag.Parse()

	cli, err := sqlclient.Dial(*addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cli.Close() }()

	// one-shot mode
	if strings.TrimSpace(*oneShotSQL) != "" {
		res, err := cli.Exec(*oneShotSQL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printResult(res)
		return
	}

	h := NewHistory(*histPath)
	_ = h.Load(*histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tidesql> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	// preload history into readline so arrow-up works immediately
	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	var buf strings.Builder

	fmt.Printf("connected to %s\n", *addr)
	fmt.Println("type \\help for help")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C clears the current buffer
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt("tidesql> ")
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			// EOF
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return
			case "\\help":
				fmt.Println(`meta commands:
  \q | quit | exit       quit
  \history               print history
  \help                  show help

sql:
  end statement with ';'
  multiline is supported (the client waits for ';')`)
			case "\\history":
				h.Print(50)
			default:
				fmt.Printf("unknown command: %s\n", line)
			}
			continue
		}

		// accumulate sql
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt("tidesql> ")

		_ = h.Append(stmt)
		_ = rl.SaveHistory(compactOneLine(stmt))

		res, err := cli.Exec(stmt)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResult(res)
	}
}
