//go:build unix

package process

import (
	"fmt"
	"os"
	"strings"
)

// isZombie reads /proc/<pid>/stat and checks the process state field
// (the third whitespace-delimited field, after the parenthesized comm
// name) for 'Z' (spec §4.3).
func isZombie(pid int) (bool, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false, err
	}
	// comm can itself contain spaces and parens; split on the last ')'.
	line := string(data)
	idx := strings.LastIndexByte(line, ')')
	if idx < 0 || idx+2 >= len(line) {
		return false, fmt.Errorf("process: malformed /proc/%d/stat", pid)
	}
	fields := strings.Fields(line[idx+2:])
	if len(fields) == 0 {
		return false, fmt.Errorf("process: malformed /proc/%d/stat", pid)
	}
	return fields[0] == "Z", nil
}
