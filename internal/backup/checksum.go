package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tis24dev/savevault/internal/logging"
)

// Sidecar file suffixes written next to every export archive.
const (
	ChecksumExt = ".sha256"
	ManifestExt = ".manifest.json"
)

// ErrChecksumMismatch is returned when an archive no longer matches its
// recorded SHA-256.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ExportManifest describes a finished export archive. It is stored next to
// the archive as <archive>.manifest.json.
type ExportManifest struct {
	ArchivePath    string    `json:"archive_path"`
	ArchiveSize    int64     `json:"archive_size"`
	SHA256         string    `json:"sha256"`
	CreatedAt      time.Time `json:"created_at"`
	SnapshotCount  int       `json:"snapshot_count"`
	PerItem        int       `json:"per_item"`
	Entries        []string  `json:"entries"`
	EncryptionMode string    `json:"encryption_mode,omitempty"`
	Version        string    `json:"version,omitempty"`
}

// GenerateChecksum calculates SHA256 checksum of a file
func GenerateChecksum(ctx context.Context, logger *logging.Logger, filePath string) (string, error) {
	logger = logging.OrDefault(logger)
	logger.Debug("Generating SHA256 checksum for: %s", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := file.Read(buf)
		if n > 0 {
			if _, err := hash.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("failed to write to hash: %w", err)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	logger.Debug("Generated checksum: %s", checksum)
	return checksum, nil
}

// WriteChecksumFile writes "<hex>  <basename>" to <filePath>.sha256, the
// format read by sha256sum -c.
func WriteChecksumFile(ctx context.Context, logger *logging.Logger, filePath string) (string, error) {
	sum, err := GenerateChecksum(ctx, logger, filePath)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	if err := os.WriteFile(filePath+ChecksumExt, []byte(line), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return sum, nil
}

// VerifyChecksum compares a file against the checksum in its .sha256 sidecar.
func VerifyChecksum(ctx context.Context, logger *logging.Logger, filePath string) (bool, error) {
	logger = logging.OrDefault(logger)
	expected, err := readChecksumFile(filePath)
	if err != nil {
		return false, err
	}

	actual, err := GenerateChecksum(ctx, logger, filePath)
	if err != nil {
		return false, fmt.Errorf("failed to generate checksum: %w", err)
	}

	matches := actual == expected
	if matches {
		logger.Debug("Checksum verification passed")
	} else {
		logger.Warning("Checksum mismatch! Expected: %s, Got: %s", expected, actual)
	}
	return matches, nil
}

func readChecksumFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath + ChecksumExt)
	if err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("checksum file for %s is empty", filePath)
	}
	return fields[0], nil
}

// CreateManifest writes manifest as indented JSON to outputPath.
func CreateManifest(logger *logging.Logger, manifest *ExportManifest, outputPath string) error {
	logging.OrDefault(logger).Debug("Creating manifest file: %s", outputPath)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifest loads a manifest from a JSON file
func LoadManifest(manifestPath string) (*ExportManifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	var manifest ExportManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}

// VerifyExport checks archive against its checksum sidecar and loads its
// manifest. The manifest is nil when the archive has none. A mismatch between
// the archive and either record returns ErrChecksumMismatch.
func VerifyExport(ctx context.Context, logger *logging.Logger, archive string) (*ExportManifest, error) {
	logger = logging.OrDefault(logger)
	expected, err := readChecksumFile(archive)
	if err != nil {
		return nil, err
	}
	manifest, err := LoadManifest(archive + ManifestExt)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		manifest = nil
	}

	actual, err := GenerateChecksum(ctx, logger, archive)
	if err != nil {
		return nil, fmt.Errorf("failed to generate checksum: %w", err)
	}
	if actual != expected {
		logger.Warning("Checksum mismatch! Expected: %s, Got: %s", expected, actual)
		return manifest, fmt.Errorf("%s: %w", archive, ErrChecksumMismatch)
	}
	if manifest != nil && manifest.SHA256 != "" && manifest.SHA256 != actual {
		return manifest, fmt.Errorf("%s: manifest %w", archive, ErrChecksumMismatch)
	}
	return manifest, nil
}
