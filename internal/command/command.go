// Package command parses the command file replayed by chtable run.
//
// Every line is a comma separated command whose last field is the priority (thread number) of the worker that
// executes it:
//
//	insert,<name>,<salary>,<priority>
//	update,<name>,<salary>,<priority>
//	delete,<name>,<priority>
//	search,<name>,<priority>
//	print,<priority>
//	threads,<count>,<priority>
//
// threads lines are accepted and ignored, blank lines are skipped.
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind is the operation of a command.
type Kind int

const (
	Insert Kind = iota
	Delete
	Update
	Search
	Print
)

var kindNames = map[Kind]string{
	Insert: "INSERT",
	Delete: "DELETE",
	Update: "UPDATE",
	Search: "SEARCH",
	Print:  "PRINT",
}

// String returns the upper case name used in logs, e.g. INSERT.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is one parsed line.
type Command struct {
	Kind     Kind
	Name     string
	Salary   uint32
	Priority uint32
	Line     int
}

// ParseLine parses a single line. skip is true for blank and threads lines.
func ParseLine(line string) (cmd Command, skip bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		skip = true
		return
	}

	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		err = fmt.Errorf("invalid command format: %s", line)
		return
	}

	op := strings.ToLower(parts[0])
	if op == "threads" {
		skip = true
		return
	}

	priority, err := parseUint32(parts[len(parts)-1], "priority")
	if err != nil {
		return
	}
	cmd.Priority = priority

	switch op {
	case "insert", "update":
		if len(parts) != 4 {
			err = fmt.Errorf("%s expects name, salary and priority: %s", op, line)
			return
		}
		cmd.Kind = Insert
		if op == "update" {
			cmd.Kind = Update
		}
		cmd.Name = parts[1]
		cmd.Salary, err = parseUint32(parts[2], "salary")
	case "delete", "search":
		if len(parts) != 3 {
			err = fmt.Errorf("%s expects name and priority: %s", op, line)
			return
		}
		cmd.Kind = Delete
		if op == "search" {
			cmd.Kind = Search
		}
		cmd.Name = parts[1]
	case "print":
		cmd.Kind = Print
	default:
		err = fmt.Errorf("unknown command: %s", parts[0])
	}

	return
}

// Parse reads all commands from r. Lines that fail to parse are skipped and reported together in err, the valid
// commands are returned either way. A read failure is returned as is.
func Parse(r io.Reader) ([]Command, error) {
	var cmds []Command
	var errs []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cmd, skip, err := ParseLine(scanner.Text())
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		if skip {
			continue
		}
		cmd.Line = lineNo
		cmds = append(cmds, cmd)
	}
	if err := scanner.Err(); err != nil {
		return cmds, err
	}

	return cmds, errors.Join(errs...)
}

func parseUint32(s, what string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return uint32(v), nil
}
