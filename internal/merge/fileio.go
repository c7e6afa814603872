package merge

import (
	"os"
	"path/filepath"
)

func readFile(repoPath, relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(repoPath, relPath))
}

func writeFile(repoPath, relPath, content string) error {
	return os.WriteFile(filepath.Join(repoPath, relPath), []byte(content), 0o644)
}
