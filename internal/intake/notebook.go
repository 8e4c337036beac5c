package intake

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type notebook struct {
	NBFormat int            `json:"nbformat"`
	Cells    []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType       string          `json:"cell_type"`
	Source         json.RawMessage `json:"source"`
	ExecutionCount *int            `json:"execution_count"`
}

// ExtractNotebook converts an nbformat 4 notebook into a Python script. Code cells get an
// "# In[n]:" header, markdown cells become comments, raw cells are dropped. IPython magics
// and shell escapes are commented out so the script stays valid Python.
func ExtractNotebook(data []byte) (string, error) {
	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", fmt.Errorf("invalid notebook JSON: %w", err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return "", fmt.Errorf("unsupported nbformat %d (need 4)", nb.NBFormat)
	}

	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env python\n# coding: utf-8\n\n")
	for i, cell := range nb.Cells {
		src, err := cellSource(cell.Source)
		if err != nil {
			return "", fmt.Errorf("cell %d: %w", i, err)
		}
		switch cell.CellType {
		case "code":
			count := " "
			if cell.ExecutionCount != nil {
				count = strconv.Itoa(*cell.ExecutionCount)
			}
			fmt.Fprintf(&sb, "# In[%s]:\n\n\n%s\n\n\n", count, commentMagics(src))
		case "markdown":
			for _, line := range strings.Split(strings.TrimRight(src, "\n"), "\n") {
				if line == "" {
					sb.WriteString("#\n")
					continue
				}
				sb.WriteString("# " + line + "\n")
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

// cellSource accepts both encodings nbformat allows: a string or a list of lines
func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("source is neither string nor list of strings")
	}
	return strings.Join(lines, ""), nil
}

func commentMagics(src string) string {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "!") {
			lines[i] = line[:len(line)-len(trimmed)] + "# " + trimmed
		}
	}
	return strings.Join(lines, "\n")
}
