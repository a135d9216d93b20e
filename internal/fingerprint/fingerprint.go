package fingerprint

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"
)

// Inputs identifies one preparation run: the two source files and the
// snapshot date they are cut at.
type Inputs struct {
	CasesPath     string
	ElectionsPath string
	SnapshotDate  string
}

// Normalize trims a line and unifies line endings so that the same data
// checked out on different platforms hashes identically.
func Normalize(line string) string {
	line = strings.TrimRight(line, "\r\n")
	return strings.TrimSpace(line)
}

// Hash returns the SHA-256 of the normalized contents of r as a hex string.
func Hash(r io.Reader) (string, error) {
	h := sha256.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		io.WriteString(h, Normalize(scanner.Text()))
		h.Write([]byte{'\n'})
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// HashFile hashes the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return Hash(file)
}

// Of combines the content hashes of both inputs with the snapshot date.
func Of(in Inputs) (string, error) {
	cases, err := HashFile(in.CasesPath)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", in.CasesPath, err)
	}
	elections, err := HashFile(in.ElectionsPath)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", in.ElectionsPath, err)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{cases, elections, in.SnapshotDate}, "\n")))
	return fmt.Sprintf("%x", sum), nil
}
