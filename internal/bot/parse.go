package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDArg extracts a numeric campaign ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("campaign ID is required")
	}
	field := strings.TrimPrefix(strings.Fields(s)[0], "#")
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid campaign ID %q", s)
	}
	return id, nil
}
