//go:build windows
// +build windows

package system

import (
	"os"
	"path/filepath"
	"strings"
)

func isExecutable(path string) bool {
	exts := os.Getenv("PATHEXT")
	if exts == "" {
		exts = ".COM;.EXE;.BAT;.CMD"
	}
	ext := filepath.Ext(path)
	for _, e := range strings.Split(exts, ";") {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
