package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnv overrides project root detection
const RootEnv = "ESMIFY_ROOT"

// FindProjectRoot returns the project root for start
// Priority order:
//  1. ESMIFY_ROOT environment variable (if set)
//  2. Nearest directory, from start upwards, holding an esmify config file
//     or a package.json
//  3. start itself (fallback)
func FindProjectRoot(start string) (string, error) {
	if root := os.Getenv(RootEnv); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", RootEnv, err)
		}
		return abs, nil
	}

	start, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}

	markers := append([]string{"package.json"}, FileNames...)
	current := start
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root
			break
		}
		current = parent
	}

	return start, nil
}
