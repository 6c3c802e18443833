package vm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// UnitExt is the file extension of unit files.
const UnitExt = ".j"

// ParseUnit reads the assembler text of one unit back into a Unit.
func ParseUnit(text string) (*Unit, error) {
	u := &Unit{}
	var cur *Method
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fail := func(format string, args ...interface{}) error {
			return fmt.Errorf("parse unit: line %d: %s", lineNo, fmt.Sprintf(format, args...))
		}

		if cur == nil {
			fields := strings.Fields(line)
			switch fields[0] {
			case ".class":
				if len(fields) < 2 {
					return nil, fail("missing class name")
				}
				u.Name = fields[len(fields)-1]
			case ".super":
				if len(fields) != 2 {
					return nil, fail("malformed .super")
				}
				u.Super = fields[1]
			case ".field":
				if len(fields) < 3 {
					return nil, fail("malformed .field")
				}
				u.Fields = append(u.Fields, Field{Name: fields[len(fields)-2], Descriptor: fields[len(fields)-1]})
			case ".method":
				if len(fields) < 2 {
					return nil, fail("malformed .method")
				}
				sig := fields[len(fields)-1]
				paren := strings.IndexByte(sig, '(')
				if paren <= 0 {
					return nil, fail("malformed method signature %q", sig)
				}
				cur = NewMethod(sig[:paren], sig[paren:])
				for _, mod := range fields[1 : len(fields)-1] {
					if mod == "static" {
						cur.Static = true
					}
				}
			default:
				if strings.HasPrefix(line, ";") {
					continue
				}
				return nil, fail("unexpected %q outside method", fields[0])
			}
			continue
		}

		switch {
		case line == ".end method":
			u.Methods = append(u.Methods, cur)
			cur = nil
		case strings.HasPrefix(line, ".limit "):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, fail("malformed .limit")
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fail("bad limit %q", fields[2])
			}
			switch fields[1] {
			case "stack":
				cur.StackLimit = n
			case "locals":
				cur.LocalsLimit = n
			default:
				return nil, fail("unknown limit %q", fields[1])
			}
		case strings.HasPrefix(line, ";"):
			cur.Lines = append(cur.Lines, Line{Kind: LineComment, Text: strings.TrimSpace(line[1:])})
		case strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \t"):
			cur.Mark(strings.TrimSuffix(line, ":"))
		default:
			op, rest := line, ""
			if sp := strings.IndexAny(line, " \t"); sp >= 0 {
				op, rest = line[:sp], strings.TrimSpace(line[sp+1:])
			}
			var operands []string
			switch {
			case rest == "":
			case Opcode(op) == OpLdc && strings.HasPrefix(rest, `"`):
				operands = []string{rest}
			default:
				operands = strings.Fields(rest)
			}
			cur.Emit(Opcode(op), operands...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse unit: %w", err)
	}
	if cur != nil {
		return nil, fmt.Errorf("parse unit %s: method %s not terminated", u.Name, cur.Name)
	}
	if u.Name == "" {
		return nil, fmt.Errorf("parse unit: missing .class directive")
	}
	return u, nil
}

// ReadUnitFile parses the unit stored at path.
func ReadUnitFile(path string) (*Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit: cannot read %q: %w", path, err)
	}
	u, err := ParseUnit(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

// ReadUnitDir parses every unit file directly inside dir, sorted by name.
func ReadUnitDir(dir string) ([]*Unit, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+UnitExt))
	if err != nil {
		return nil, fmt.Errorf("read units: invalid path %q: %w", dir, err)
	}
	sort.Strings(matches)

	var units []*Unit
	for _, path := range matches {
		u, err := ReadUnitFile(path)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}
