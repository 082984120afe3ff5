package command

import (
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// hasPipeToInterpreter parses the command with a bash-variant shell parser
// and looks for a download command piped into a shell or code interpreter.
// The AST walk catches flag reordering and quoting that keyword matching
// misses. Unparseable input falls back to a naive pipe split.
func hasPipeToInterpreter(command string) bool {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return fallbackPipeCheck(command)
	}

	found := false
	syntax.Walk(file, func(node syntax.Node) bool {
		if found {
			return false
		}
		bin, ok := node.(*syntax.BinaryCmd)
		if !ok || bin.Op != syntax.Pipe {
			return true
		}
		if isDownloadCommand(executableOf(bin.X)) && isInterpreter(executableOf(bin.Y)) {
			found = true
			return false
		}
		return true
	})
	return found
}

// executableOf returns the base executable of a statement, looking through
// sudo and nested pipes on the left-hand side.
func executableOf(stmt *syntax.Stmt) string {
	if stmt == nil || stmt.Cmd == nil {
		return ""
	}
	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		words := make([]string, 0, len(cmd.Args))
		for _, w := range cmd.Args {
			words = append(words, wordToString(w))
		}
		if len(words) == 0 {
			return ""
		}
		// Compare by basename so /usr/bin/curl and curl look the same.
		exe := filepath.Base(words[0])
		if exe == "sudo" {
			for _, w := range words[1:] {
				if !strings.HasPrefix(w, "-") {
					return filepath.Base(w)
				}
			}
		}
		return exe
	case *syntax.BinaryCmd:
		// For a nested pipe the effective producer/consumer is the right side.
		return executableOf(cmd.Y)
	}
	return ""
}

func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	printer := syntax.NewPrinter()
	_ = printer.Print(&sb, word)
	return sb.String()
}

var interpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true,
	"python": true, "python3": true, "node": true, "ruby": true, "perl": true,
}

func isInterpreter(exe string) bool {
	return interpreters[exe]
}

func isDownloadCommand(exe string) bool {
	switch exe {
	case "curl", "wget", "fetch", "aria2c":
		return true
	}
	return false
}

func fallbackPipeCheck(command string) bool {
	parts := strings.Split(strings.ToLower(command), "|")
	if len(parts) < 2 {
		return false
	}
	for i := 0; i < len(parts)-1; i++ {
		left := strings.Fields(parts[i])
		right := strings.Fields(parts[i+1])
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		if isDownloadCommand(filepath.Base(left[0])) && isInterpreter(filepath.Base(right[0])) {
			return true
		}
	}
	return false
}
